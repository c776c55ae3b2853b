package upnpc

import "encoding/xml"

// XML shapes for the two description schemas. Decoding matches on local
// names only, so prefixed and default-namespaced documents both work, and
// unknown elements fall through untouched.

type rootDocument struct {
	XMLName xml.Name  `xml:"root"`
	URLBase string    `xml:"URLBase"`
	Device  deviceXML `xml:"device"`
}

type deviceXML struct {
	DeviceType       string       `xml:"deviceType"`
	FriendlyName     string       `xml:"friendlyName"`
	Manufacturer     string       `xml:"manufacturer"`
	ManufacturerURL  string       `xml:"manufacturerURL"`
	ModelDescription string       `xml:"modelDescription"`
	ModelName        string       `xml:"modelName"`
	ModelNumber      string       `xml:"modelNumber"`
	ModelURL         string       `xml:"modelURL"`
	SerialNumber     string       `xml:"serialNumber"`
	UDN              string       `xml:"UDN"`
	UPC              string       `xml:"UPC"`
	PresentationURL  string       `xml:"presentationURL"`
	Services         []serviceXML `xml:"serviceList>service"`
	Devices          []deviceXML  `xml:"deviceList>device"`
}

type serviceXML struct {
	ServiceType string `xml:"serviceType"`
	ServiceID   string `xml:"serviceId"`
	SCPDURL     string `xml:"SCPDURL"`
	ControlURL  string `xml:"controlURL"`
	EventSubURL string `xml:"eventSubURL"`
}

type scpdDocument struct {
	XMLName   xml.Name       `xml:"scpd"`
	Actions   []actionXML    `xml:"actionList>action"`
	StateVars []stateVarXML  `xml:"serviceStateTable>stateVariable"`
}

type actionXML struct {
	Name string   `xml:"name"`
	Args []argXML `xml:"argumentList>argument"`
}

type argXML struct {
	Name                 string `xml:"name"`
	Direction            string `xml:"direction"`
	RelatedStateVariable string `xml:"relatedStateVariable"`
}

type stateVarXML struct {
	SendEvents    string           `xml:"sendEvents,attr"`
	Name          string           `xml:"name"`
	DataType      string           `xml:"dataType"`
	DefaultValue  string           `xml:"defaultValue"`
	AllowedValues []string         `xml:"allowedValueList>allowedValue"`
	AllowedRange  *allowedRangeXML `xml:"allowedValueRange"`
}

type allowedRangeXML struct {
	Minimum string `xml:"minimum"`
	Maximum string `xml:"maximum"`
	Step    string `xml:"step"`
}
