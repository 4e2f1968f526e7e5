package recipes

import (
	"fmt"

	"github.com/longbridgeapp/opencc"
	"github.com/poiesic/butler/core"
)

// Normalizer rewrites display text, typically from Simplified to
// Traditional Chinese.
type Normalizer interface {
	Normalize(text string) (string, error)
}

// OpenCCNormalizer converts Simplified Chinese to Traditional Chinese.
type OpenCCNormalizer struct {
	cc *opencc.OpenCC
}

// NewOpenCCNormalizer loads the s2t conversion tables.
func NewOpenCCNormalizer() (*OpenCCNormalizer, error) {
	cc, err := opencc.New("s2t")
	if err != nil {
		return nil, fmt.Errorf("loading opencc s2t: %w", err)
	}
	return &OpenCCNormalizer{cc: cc}, nil
}

// Normalize converts text.
func (n *OpenCCNormalizer) Normalize(text string) (string, error) {
	if text == "" {
		return "", nil
	}
	return n.cc.Convert(text)
}

// IdentityNormalizer returns text unchanged.
type IdentityNormalizer struct{}

// Normalize returns text.
func (IdentityNormalizer) Normalize(text string) (string, error) {
	return text, nil
}

// NormalizeRecipe converts the name, description and ingredients of r.
// Extra fields are left untouched.
func NormalizeRecipe(n Normalizer, r core.Recipe) (core.Recipe, error) {
	var err error
	if r.Name, err = n.Normalize(r.Name); err != nil {
		return r, fmt.Errorf("normalizing name: %w", err)
	}
	if r.Description, err = n.Normalize(r.Description); err != nil {
		return r, fmt.Errorf("normalizing description of %q: %w", r.Name, err)
	}
	if r.Ingredients, err = n.Normalize(r.Ingredients); err != nil {
		return r, fmt.Errorf("normalizing ingredients of %q: %w", r.Name, err)
	}
	return r, nil
}
