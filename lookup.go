package upnpc

import "strings"

// Service lookup accepts three spellings of the same key, established once
// at construction time:
//
//	urn:upnp-org:serviceId:WANIPConn1   full serviceId
//	WANIPConn1                          last colon-separated segment
//	WANIPConn1                          sanitised identifier form
//
// The sanitised form strips every character that cannot appear in an
// identifier, so ids like "urn:upnp-org:serviceId:Dimming.1" become
// reachable as "Dimming1". When two services collide on a short form, the
// earlier service in tree order keeps the key; the full serviceId always
// remains unambiguous.

// freezeIndex builds the device's service lookup table over the whole
// tree, root device's services first.
func (d *Device) freezeIndex() {
	index := make(map[string]*Service)
	put := func(key string, s *Service) {
		if key == "" {
			return
		}
		if _, taken := index[key]; !taken {
			index[key] = s
		}
	}
	for _, s := range d.AllServices() {
		put(s.ServiceID, s)
		put(lastSegment(s.ServiceID), s)
		put(sanitizeKey(lastSegment(s.ServiceID)), s)
	}
	d.shareIndex(index)
}

// shareIndex installs the same frozen index on every device in the tree,
// so lookups work from embedded devices too.
func (d *Device) shareIndex(index map[string]*Service) {
	d.serviceIndex = index
	for _, sub := range d.Embedded {
		sub.shareIndex(index)
	}
}

// ServiceKeys returns every lookup key of the frozen index.
func (d *Device) ServiceKeys() []string {
	keys := make([]string, 0, len(d.serviceIndex))
	for k := range d.serviceIndex {
		keys = append(keys, k)
	}
	return keys
}

func lastSegment(id string) string {
	if i := strings.LastIndex(id, ":"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// sanitizeKey reduces a key to identifier characters, prefixing an
// underscore when the result would start with a digit.
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return ""
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}
