package service

import (
	"fmt"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
)

// StudioCatalog is the static, read-only list of bookable studios.
type StudioCatalog struct {
	studios []model.Studio
	byID    map[string]model.Studio
}

func NewStudioCatalog(studios []model.Studio) (*StudioCatalog, error) {
	if len(studios) == 0 {
		studios = model.DefaultStudios
	}

	c := &StudioCatalog{
		studios: make([]model.Studio, 0, len(studios)),
		byID:    make(map[string]model.Studio, len(studios)),
	}
	for _, st := range studios {
		if st.ID == "" || st.Name == "" {
			return nil, fmt.Errorf("studio catalog: id and name are required (%+v)", st)
		}
		if _, dup := c.byID[st.ID]; dup {
			return nil, fmt.Errorf("studio catalog: duplicate id %q", st.ID)
		}
		c.byID[st.ID] = st
		c.studios = append(c.studios, st)
	}
	return c, nil
}

func (c *StudioCatalog) Get(id string) (model.Studio, bool) {
	st, ok := c.byID[id]
	return st, ok
}

// All returns the studios in configuration order.
func (c *StudioCatalog) All() []model.Studio {
	out := make([]model.Studio, len(c.studios))
	copy(out, c.studios)
	return out
}
