package soap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	envelopeNS    = "http://schemas.xmlsoap.org/soap/envelope/"
	encodingStyle = "http://schemas.xmlsoap.org/soap/encoding/"
)

// Arg is one named argument in wire (string) form. Order matters: request
// bodies must list arguments in the order the action declares them.
type Arg struct {
	Name  string
	Value string
}

// buildEnvelope renders a SOAP 1.1 request envelope for one action call.
// The action element is namespaced by the service type, and its children
// appear exactly in the order of in.
func buildEnvelope(serviceType, action string, in []Arg) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	env := doc.CreateElement("s:Envelope")
	env.CreateAttr("xmlns:s", envelopeNS)
	env.CreateAttr("s:encodingStyle", encodingStyle)

	body := env.CreateElement("s:Body")
	act := body.CreateElement("u:" + action)
	act.CreateAttr("xmlns:u", serviceType)

	for _, a := range in {
		act.CreateElement(a.Name).SetText(a.Value)
	}

	return doc.WriteToBytes()
}

// findChild returns the first child element with the given local name,
// ignoring namespace prefixes. Real devices disagree about prefixes, so
// everything here matches on local names only.
func findChild(el *etree.Element, local string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == local {
			return child
		}
	}
	return nil
}

// parseResponseEnvelope extracts the <u:<action>Response> children from a
// response body. It returns each child element as a name/text pair in
// document order.
func parseResponseEnvelope(data []byte, action string) ([]Arg, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("malformed XML: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, fmt.Errorf("missing SOAP envelope")
	}
	body := findChild(root, "Body")
	if body == nil {
		return nil, fmt.Errorf("missing SOAP body")
	}

	want := action + "Response"
	resp := findChild(body, want)
	if resp == nil {
		// Some devices answer with a bare action element.
		if resp = findChild(body, action); resp == nil {
			return nil, fmt.Errorf("missing %s element", want)
		}
	}

	var out []Arg
	for _, child := range resp.ChildElements() {
		out = append(out, Arg{Name: child.Tag, Value: child.Text()})
	}
	return out, nil
}

// parseFault extracts a SOAP fault from a response body. It returns nil if
// the body holds no <Fault> element.
func parseFault(data []byte, httpStatus int) *Fault {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil
	}
	root := doc.Root()
	if root == nil {
		return nil
	}
	var faultEl *etree.Element
	if root.Tag == "Fault" {
		faultEl = root
	} else if body := findChild(root, "Body"); body != nil {
		faultEl = findChild(body, "Fault")
	}
	if faultEl == nil {
		return nil
	}

	f := &Fault{HTTPStatus: httpStatus}
	if el := findChild(faultEl, "faultcode"); el != nil {
		f.FaultCode = strings.TrimSpace(el.Text())
	}
	if el := findChild(faultEl, "faultstring"); el != nil {
		f.FaultString = strings.TrimSpace(el.Text())
	}
	if detail := findChild(faultEl, "detail"); detail != nil {
		if upnpErr := findChild(detail, "UPnPError"); upnpErr != nil {
			if el := findChild(upnpErr, "errorCode"); el != nil {
				f.ErrorCode, _ = strconv.Atoi(strings.TrimSpace(el.Text()))
			}
			if el := findChild(upnpErr, "errorDescription"); el != nil {
				f.ErrorDescription = strings.TrimSpace(el.Text())
			}
		}
	}
	return f
}
