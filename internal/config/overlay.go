package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Overlay holds the options a per-directory configuration file may set.
// Rules are prepended to the inherited ones; table entries replace the
// inherited entries with the same key.
type Overlay struct {
	Title            string            `yaml:"title"`
	Annotation       string            `yaml:"annotation"`
	AnnotationFormat string            `yaml:"annotation_format"`
	Ignore           []Rule            `yaml:"ignore"`
	Index            []Rule            `yaml:"index"`
	MimeTypes        map[string]string `yaml:"mimetypes"`
	Dispositions     map[string]string `yaml:"dispositions"`
	Cacheable        map[string]bool   `yaml:"cacheable"`
}

// ParseOverlay decodes a per-directory configuration file. Unknown keys are
// errors. An empty file yields an empty overlay.
func ParseOverlay(data []byte) (*Overlay, error) {
	o := &Overlay{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(o); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := validFormat(o.AnnotationFormat); err != nil {
		return nil, err
	}
	for mime, d := range o.Dispositions {
		if err := validDisposition(d); err != nil {
			return nil, fmt.Errorf("disposition for %s: %w", mime, err)
		}
	}
	o.MimeTypes = CanonicalExtensions(o.MimeTypes)
	return o, nil
}
