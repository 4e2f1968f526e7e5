package recipes

import (
	"github.com/poiesic/butler/core"
)

// Corpus is an immutable snapshot of recipes and their title vectors.
type Corpus struct {
	recipes []core.Recipe
	vectors [][]float32
}

func newCorpus(recipes []core.Recipe, vectors [][]float32) (*Corpus, error) {
	if _, err := core.ValidateDimensions(vectors); err != nil {
		return nil, err
	}
	return &Corpus{
		recipes: recipes,
		vectors: core.NormalizeAll(vectors),
	}, nil
}

// Len returns the number of recipes.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.recipes)
}

// Recipe returns the recipe at position i.
func (c *Corpus) Recipe(i int) core.Recipe {
	return c.recipes[i]
}

// Titles returns recipe names in corpus order.
func (c *Corpus) Titles() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.recipes))
	for i, r := range c.recipes {
		out[i] = r.Name
	}
	return out
}

func (c *Corpus) nearest(query []float32) (int, float32, error) {
	return core.Nearest(query, c.vectors)
}
