// Package pricelist reads shop price lists and loads them into the catalog.
package pricelist

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/SirPen9uin/shop-api/pkg/repositories"
)

// PriceList is a shop's catalog feed. Category ids are the shop's own and
// only link goods to categories within the file.
type PriceList struct {
	Shop       string     `yaml:"shop" validate:"required,max=50"`
	URL        string     `yaml:"url" validate:"omitempty,max=200"`
	Categories []Category `yaml:"categories" validate:"dive"`
	Goods      []Good     `yaml:"goods" validate:"dive"`
}

type Category struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name" validate:"required,max=50"`
}

type Good struct {
	ID         int64          `yaml:"id"`
	Category   int64          `yaml:"category" validate:"required"`
	Model      string         `yaml:"model" validate:"omitempty,max=50"`
	Name       string         `yaml:"name" validate:"required,max=50"`
	Price      int64          `yaml:"price"`
	PriceRRC   int64          `yaml:"price_rrc"`
	Quantity   int64          `yaml:"quantity"`
	Parameters map[string]any `yaml:"parameters"`
}

var validate = validator.New()

// maxParameterLength matches the parameters.name and product_parameters.value columns.
const maxParameterLength = 50

func Parse(r io.Reader) (*PriceList, error) {
	var list PriceList
	if err := yaml.NewDecoder(r).Decode(&list); err != nil {
		if err == io.EOF {
			return nil, repositories.BadRequest("price list is empty")
		}
		return nil, repositories.BadRequest(fmt.Sprintf("invalid price list: %v", err))
	}
	return &list, nil
}

func ParseFile(path string) (*PriceList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Validate checks the fields the catalog needs and that every good points at
// a category declared in the file.
func (p *PriceList) Validate() error {
	if err := validate.Struct(p); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields = ectolinq.Map(verrs, func(fe validator.FieldError) string {
				return fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag())
			})
		}
		if len(fields) == 0 {
			return repositories.BadRequest(err.Error())
		}
		return repositories.BadRequest("invalid price list: " + strings.Join(fields, ", "))
	}

	known := ectolinq.KeyWhere(p.Categories, func(c Category) int64 { return c.ID })
	for _, good := range p.Goods {
		if _, ok := known[good.Category]; !ok {
			return repositories.BadRequest(fmt.Sprintf("good %d (%s) references unknown category %d", good.ID, good.Name, good.Category))
		}
		if err := good.validateParameters(); err != nil {
			return err
		}
	}
	return nil
}

func (g Good) validateParameters() error {
	for _, name := range g.ParameterNames() {
		value := g.ParameterValue(name)
		switch {
		case strings.TrimSpace(name) == "" || len(name) > maxParameterLength:
			return repositories.BadRequest(fmt.Sprintf("good %d (%s) has an invalid parameter name %q", g.ID, g.Name, name))
		case value == "" || len(value) > maxParameterLength:
			return repositories.BadRequest(fmt.Sprintf("good %d (%s) has an invalid value for parameter %q", g.ID, g.Name, name))
		}
	}
	return nil
}

// ListingName is the shop's own name for the good: its model when the feed
// carries one, otherwise the product name.
func (g Good) ListingName() string {
	if g.Model != "" {
		return g.Model
	}
	return g.Name
}

// ParameterNames returns the names of the good's parameters that carry a
// value, in a stable order. Parameters set to null are left out.
func (g Good) ParameterNames() []string {
	names := ectolinq.Keys(ectolinq.FilterMap(g.Parameters, func(_ string, v any) bool { return v != nil }))
	sort.Strings(names)
	return names
}

// ParameterValue renders a parameter value the way it is stored.
func (g Good) ParameterValue(name string) string {
	switch v := g.Parameters[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
