// Package manifest loads and validates the artifact manifest: the YAML file
// declaring which upstream files to mirror and the digest each must have.
package manifest

import (
	"encoding/hex"
	"fmt"
	"io"
	"mirror/pkg/domain"
	"mirror/pkg/serrors"
	"net/url"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the parsed artifact manifest.
type Manifest struct {
	// Artifacts lists the files to mirror, in the order they should be
	// reported and printed.
	Artifacts []domain.Artifact `yaml:"artifacts"`
}

// Load reads and validates the manifest file at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open manifest: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Parse(f)
}

// Parse decodes a manifest from r and validates every entry. Unknown fields
// are rejected so typos in the manifest fail loudly instead of being ignored.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "could not decode manifest")
	}

	if err := m.validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// validate checks every artifact entry and fills derived fields (Name from
// the URL path when unset).
func (m *Manifest) validate() error {
	if len(m.Artifacts) == 0 {
		return serrors.With(serrors.ErrBadRequest, "manifest declares no artifacts")
	}

	seen := make(map[string]string, len(m.Artifacts))
	for i := range m.Artifacts {
		a := &m.Artifacts[i]

		if err := validateArtifact(a); err != nil {
			return err
		}

		out := a.OutputName()
		if prev, ok := seen[out]; ok {
			return serrors.With(serrors.ErrBadRequest,
				"artifacts %q and %q both produce output %q", prev, a.URL, out)
		}
		seen[out] = a.URL
	}

	return nil
}

func validateArtifact(a *domain.Artifact) error {
	u, err := url.Parse(a.URL)
	if err != nil {
		return serrors.Wrap(serrors.ErrBadRequest, err, "invalid artifact URL %q", a.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return serrors.With(serrors.ErrBadRequest, "unsupported URL scheme %q in %q", u.Scheme, a.URL)
	}

	if a.Name == "" {
		a.Name = path.Base(u.Path)
	}
	if a.Name == "" || a.Name == "." || a.Name == "/" {
		return serrors.With(serrors.ErrBadRequest, "could not derive a file name from URL %q", a.URL)
	}
	// The recompression contract is xz in, zstd out.
	if !strings.HasSuffix(a.Name, ".xz") {
		return serrors.With(serrors.ErrBadRequest, "artifact %q is not an xz file", a.Name)
	}

	digest := strings.ToLower(a.SHA256)
	if len(digest) != 64 {
		return serrors.With(serrors.ErrBadRequest, "artifact %q has malformed sha256 %q", a.Name, a.SHA256)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return serrors.Wrap(serrors.ErrBadRequest, err, "artifact %q has malformed sha256", a.Name)
	}
	a.SHA256 = digest

	return nil
}
