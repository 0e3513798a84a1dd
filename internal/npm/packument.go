package npm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Packument is the registry metadata document for one package: every
// published version plus the dist-tag table.
type Packument struct {
	Name     string                  `json:"name"`
	DistTags map[string]string       `json:"dist-tags"`
	Versions map[string]*VersionInfo `json:"versions"`

	// order holds the version keys exactly as the registry document listed
	// them. JSON object decoding discards key order, so it is recovered
	// separately during parsing.
	order []string
}

// VersionInfo is the per-version manifest slice embedded in a packument.
type VersionInfo struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Engines     map[string]string `json:"engines"`
	Deprecated  string            `json:"deprecated"`
	Dist        DistInfo          `json:"dist"`
}

// DistInfo points at the downloadable artifact for a published version.
type DistInfo struct {
	Tarball   string `json:"tarball"`
	Shasum    string `json:"shasum"`
	Integrity string `json:"integrity"`
}

// VersionOrder returns all published version strings in the order the
// registry document reported them. The registry appends on publish, so this
// is publish order, not semantic-version order.
func (p *Packument) VersionOrder() []string {
	return p.order
}

// parsePackument decodes a registry metadata document, recovering the
// version key order that plain struct decoding would lose.
func parsePackument(data []byte) (*Packument, error) {
	var doc Packument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing registry document: %w", err)
	}
	order, err := versionOrder(data)
	if err != nil {
		return nil, fmt.Errorf("reading version order: %w", err)
	}
	doc.order = order
	return &doc, nil
}

// versionOrder walks the document token stream and collects the keys of the
// top-level "versions" object in encounter order.
func versionOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("document is not a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in document", keyTok)
		}

		if key != "versions" {
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			continue
		}

		open, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := open.(json.Delim); !ok || d != '{' {
			return nil, fmt.Errorf("versions field is not a JSON object")
		}
		var order []string
		for dec.More() {
			vTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			version, ok := vTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected token %v in versions", vTok)
			}
			order = append(order, version)
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
		return order, nil
	}
	return nil, nil
}

// skipValue consumes exactly one JSON value, descending through nested
// objects and arrays.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
		for dec.More() {
			if err := skipValue(dec); err != nil {
				return err
			}
		}
		// Closing delimiter.
		if _, err := dec.Token(); err != nil {
			return err
		}
	}
	return nil
}
