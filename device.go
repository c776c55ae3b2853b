package upnpc

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"grimm.is/upnpc/internal/logging"
	"grimm.is/upnpc/internal/metrics"
	"grimm.is/upnpc/session"
	"grimm.is/upnpc/soap"
	"grimm.is/upnpc/types"
)

// Device is one UPnP device at a known description URL, with its embedded
// devices and fully-described services.
type Device struct {
	Location *url.URL
	URLBase  *url.URL

	DeviceType       string
	FriendlyName     string
	Manufacturer     string
	ManufacturerURL  string
	ModelDescription string
	ModelName        string
	ModelNumber      string
	ModelURL         string
	SerialNumber     string
	UDN              string
	UPC              string
	PresentationURL  string

	// Services lists this device's own services in document order.
	Services []*Service

	// Embedded lists sub-devices in document order.
	Embedded []*Device

	policy *session.Policy
	hc     *http.Client
	logger *logging.Logger

	// serviceIndex is built once at construction and frozen; it maps
	// every lookup form of a service key to the service.
	serviceIndex map[string]*Service
}

// Service is one service of a device, with its parsed control schema.
type Service struct {
	ServiceType string
	ServiceID   string

	// Absolute, already resolved against the device's URL base.
	SCPDURL     *url.URL
	ControlURL  *url.URL
	EventSubURL *url.URL

	// Actions in SCPD document order.
	Actions []*Action

	// StateVars maps state variable names to their declarations.
	StateVars map[string]*StateVariable

	device      *Device
	client      *soap.Client
	actionIndex map[string]*Action
}

// Action is one callable operation on a service.
type Action struct {
	Name string

	// ArgsIn and ArgsOut are the declared argument lists, in order.
	ArgsIn  []*ArgDef
	ArgsOut []*ArgDef

	service *Service
}

// ArgDef is one argument of an action, with the type constraints inherited
// from its related state variable.
type ArgDef struct {
	Name            string
	RelatedStateVar string
	Datatype        string
	AllowedValues   []string
	AllowedRange    *types.Range
}

// StateVariable is a named, typed value owned by a service.
type StateVariable struct {
	Name          string
	Datatype      string
	SendEvents    bool
	Default       string
	AllowedValues []string
	AllowedRange  *types.Range
}

// NewDevice fetches and parses the description document at location, then
// fetches every referenced SCPD and completes the service tree. Options
// become the device-level session policy applied to these fetches and to
// later action invocations.
func NewDevice(ctx context.Context, location string, opts ...session.Option) (*Device, error) {
	loc, err := url.Parse(location)
	if err != nil {
		return nil, &ParseError{URL: location, Reason: "bad description URL", Err: err}
	}

	pol := (*session.Policy)(nil).Resolve(opts...)
	hc, err := pol.HTTPClient()
	if err != nil {
		return nil, err
	}

	dev, err := fetchDevice(ctx, loc, pol, hc)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

func fetchDevice(ctx context.Context, loc *url.URL, pol *session.Policy, hc *http.Client) (*Device, error) {
	logger := pol.Log().WithComponent("device")

	var root rootDocument
	if err := fetchXML(ctx, hc, pol, loc.String(), "root", &root); err != nil {
		return nil, err
	}

	// Without <URLBase>, the base is the description URL with its path
	// stripped to the last slash.
	base := loc.ResolveReference(&url.URL{Path: "."})
	if root.URLBase != "" {
		parsed, err := url.Parse(root.URLBase)
		if err != nil {
			return nil, &ParseError{URL: loc.String(), Reason: fmt.Sprintf("bad URLBase %q", root.URLBase), Err: err}
		}
		base = parsed
	}

	dev, err := buildDevice(&root.Device, loc, base, pol, hc, logger)
	if err != nil {
		return nil, err
	}

	for _, svc := range dev.AllServices() {
		if err := svc.describe(ctx, hc, pol); err != nil {
			return nil, err
		}
	}

	dev.freezeIndex()
	logger.Debug("device ready", "udn", dev.UDN, "services", len(dev.AllServices()))
	return dev, nil
}

func buildDevice(doc *deviceXML, loc, base *url.URL, pol *session.Policy, hc *http.Client, logger *logging.Logger) (*Device, error) {
	dev := &Device{
		Location:         loc,
		URLBase:          base,
		DeviceType:       doc.DeviceType,
		FriendlyName:     doc.FriendlyName,
		Manufacturer:     doc.Manufacturer,
		ManufacturerURL:  doc.ManufacturerURL,
		ModelDescription: doc.ModelDescription,
		ModelName:        doc.ModelName,
		ModelNumber:      doc.ModelNumber,
		ModelURL:         doc.ModelURL,
		SerialNumber:     doc.SerialNumber,
		UDN:              doc.UDN,
		UPC:              doc.UPC,
		PresentationURL:  doc.PresentationURL,
		policy:           pol,
		hc:               hc,
		logger:           logger,
	}

	for i := range doc.Services {
		svc, err := buildService(&doc.Services[i], dev)
		if err != nil {
			return nil, err
		}
		dev.Services = append(dev.Services, svc)
	}

	for i := range doc.Devices {
		sub, err := buildDevice(&doc.Devices[i], loc, base, pol, hc, logger)
		if err != nil {
			return nil, err
		}
		dev.Embedded = append(dev.Embedded, sub)
	}

	return dev, nil
}

func buildService(doc *serviceXML, dev *Device) (*Service, error) {
	svc := &Service{
		ServiceType: doc.ServiceType,
		ServiceID:   doc.ServiceID,
		device:      dev,
	}

	var err error
	if svc.SCPDURL, err = resolveURL(dev.URLBase, doc.SCPDURL); err != nil {
		return nil, &ParseError{URL: dev.Location.String(), Reason: fmt.Sprintf("service %s: bad SCPDURL %q", doc.ServiceID, doc.SCPDURL), Err: err}
	}
	if svc.ControlURL, err = resolveURL(dev.URLBase, doc.ControlURL); err != nil {
		return nil, &ParseError{URL: dev.Location.String(), Reason: fmt.Sprintf("service %s: bad controlURL %q", doc.ServiceID, doc.ControlURL), Err: err}
	}
	if svc.EventSubURL, err = resolveURL(dev.URLBase, doc.EventSubURL); err != nil {
		return nil, &ParseError{URL: dev.Location.String(), Reason: fmt.Sprintf("service %s: bad eventSubURL %q", doc.ServiceID, doc.EventSubURL), Err: err}
	}

	if svc.ControlURL != nil {
		svc.client = soap.NewClient(svc.ControlURL.String(), svc.ServiceType)
	}
	return svc, nil
}

// resolveURL resolves ref against base. An empty ref yields nil rather
// than the base itself; optional URLs stay absent.
func resolveURL(base *url.URL, ref string) (*url.URL, error) {
	if ref == "" {
		return nil, nil
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(parsed), nil
}

// describe fetches and applies the service's SCPD.
func (s *Service) describe(ctx context.Context, hc *http.Client, pol *session.Policy) error {
	if s.SCPDURL == nil {
		return &ParseError{URL: s.device.Location.String(), Reason: fmt.Sprintf("service %s has no SCPDURL", s.ServiceID)}
	}

	var scpd scpdDocument
	if err := fetchXML(ctx, hc, pol, s.SCPDURL.String(), "scpd", &scpd); err != nil {
		return err
	}

	s.StateVars = make(map[string]*StateVariable, len(scpd.StateVars))
	for i := range scpd.StateVars {
		sv := buildStateVariable(&scpd.StateVars[i])
		s.StateVars[sv.Name] = sv
	}

	s.actionIndex = make(map[string]*Action, len(scpd.Actions))
	for i := range scpd.Actions {
		action, err := s.buildAction(&scpd.Actions[i])
		if err != nil {
			return err
		}
		s.Actions = append(s.Actions, action)
		s.actionIndex[action.Name] = action
	}
	return nil
}

func buildStateVariable(doc *stateVarXML) *StateVariable {
	sv := &StateVariable{
		Name:          doc.Name,
		Datatype:      doc.DataType,
		SendEvents:    !strings.EqualFold(doc.SendEvents, "no"),
		Default:       doc.DefaultValue,
		AllowedValues: doc.AllowedValues,
	}
	if doc.AllowedRange != nil {
		sv.AllowedRange = &types.Range{
			Min:  doc.AllowedRange.Minimum,
			Max:  doc.AllowedRange.Maximum,
			Step: doc.AllowedRange.Step,
		}
	}
	return sv
}

func (s *Service) buildAction(doc *actionXML) (*Action, error) {
	action := &Action{Name: doc.Name, service: s}

	for i := range doc.Args {
		arg := &doc.Args[i]
		sv, ok := s.StateVars[arg.RelatedStateVariable]
		if !ok {
			return nil, &ParseError{
				URL: s.SCPDURL.String(),
				Reason: fmt.Sprintf("action %s argument %s references unknown state variable %q",
					doc.Name, arg.Name, arg.RelatedStateVariable),
			}
		}
		def := &ArgDef{
			Name:            arg.Name,
			RelatedStateVar: sv.Name,
			Datatype:        sv.Datatype,
			AllowedValues:   sv.AllowedValues,
			AllowedRange:    sv.AllowedRange,
		}
		if strings.EqualFold(arg.Direction, "out") {
			action.ArgsOut = append(action.ArgsOut, def)
		} else {
			action.ArgsIn = append(action.ArgsIn, def)
		}
	}
	return action, nil
}

// fetchXML GETs a description document and decodes it, with the session
// policy's headers and credentials applied.
func fetchXML(ctx context.Context, hc *http.Client, pol *session.Policy, rawURL, kind string, doc any) error {
	metrics.Get().DescriptionFetches.WithLabelValues(kind).Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &ParseError{URL: rawURL, Reason: "bad URL", Err: err}
	}
	pol.Apply(req)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("upnpc: fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ParseError{URL: rawURL, Reason: fmt.Sprintf("HTTP %s: %s", resp.Status, strings.TrimSpace(string(body)))}
	}

	if err := xml.NewDecoder(resp.Body).Decode(doc); err != nil {
		return &ParseError{URL: rawURL, Reason: "malformed XML", Err: err}
	}
	return nil
}

// AllServices returns every service of the device tree, root device's
// services first, then each embedded device's in document order.
func (d *Device) AllServices() []*Service {
	out := append([]*Service(nil), d.Services...)
	for _, sub := range d.Embedded {
		out = append(out, sub.AllServices()...)
	}
	return out
}

// Service looks up a service by any of its three key forms: the full
// serviceId, the last colon-separated segment of it, or the sanitised
// identifier form.
func (d *Device) Service(key string) (*Service, bool) {
	s, ok := d.serviceIndex[key]
	return s, ok
}

// ServiceByType returns the first service with the given serviceType,
// searching the whole tree.
func (d *Device) ServiceByType(serviceType string) (*Service, bool) {
	for _, s := range d.AllServices() {
		if s.ServiceType == serviceType {
			return s, true
		}
	}
	return nil, false
}

// Actions returns every action of every service in the tree.
func (d *Device) Actions() []*Action {
	var out []*Action
	for _, s := range d.AllServices() {
		out = append(out, s.Actions...)
	}
	return out
}

// FindAction returns the first action with the given name anywhere in the
// device tree.
func (d *Device) FindAction(name string) (*Action, bool) {
	for _, s := range d.AllServices() {
		if a, ok := s.Action(name); ok {
			return a, true
		}
	}
	return nil, false
}

// Close releases pooled connections held by the device's HTTP client.
func (d *Device) Close() {
	if d.hc != nil {
		d.hc.CloseIdleConnections()
	}
}

// Policy returns the device-level session policy.
func (d *Device) Policy() *session.Policy {
	return d.policy
}

func (d *Device) String() string {
	return fmt.Sprintf("upnpc.Device{%s %q}", d.UDN, d.FriendlyName)
}

// Action looks up an action by name on this service.
func (s *Service) Action(name string) (*Action, bool) {
	a, ok := s.actionIndex[name]
	return a, ok
}

// FindAction is Action with a nil result instead of an ok flag.
func (s *Service) FindAction(name string) *Action {
	a := s.actionIndex[name]
	return a
}

// Device returns the device this service belongs to.
func (s *Service) Device() *Device {
	return s.device
}

func (s *Service) String() string {
	return fmt.Sprintf("upnpc.Service{%s}", s.ServiceID)
}
