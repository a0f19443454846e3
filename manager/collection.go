package manager

import (
	"fmt"

	"github.com/magql/magql"
	"github.com/magql/magql/filter"
	"github.com/magql/magql/schema"
)

// UnionName is the union over all base object types returned by the
// checkDelete query.
const UnionName = "TableUnion"

// CheckDeleteQueryName is the root query reporting rows that still
// reference a row about to be deleted.
const CheckDeleteQueryName = "checkDelete"

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

// WithManager installs a pre-built manager for a model instead of
// deriving one, e.g. to carry name overrides.
func WithManager(m *TableManager) CollectionOption {
	return func(c *Collection) { c.overrides[m.Model().Name] = m }
}

// WithoutMutations drops the create, update and delete mutations from the
// assembled schema.
func WithoutMutations() CollectionOption {
	return func(c *Collection) { c.noMutations = true }
}

// Collection groups the table managers of a model set and assembles the
// full schema.
type Collection struct {
	set     *magql.ModelSet
	factory ResolverFactory

	order       []string
	managers    map[string]*TableManager
	overrides   map[string]*TableManager
	noMutations bool
}

// NewCollection derives a manager per model, resolves relationships into
// fields and binds resolvers from the factory. A nil factory leaves the
// fields unbound, which is enough for SDL generation.
func NewCollection(set *magql.ModelSet, factory ResolverFactory, opts ...CollectionOption) (*Collection, error) {
	c := &Collection{
		set:       set,
		factory:   factory,
		managers:  make(map[string]*TableManager),
		overrides: make(map[string]*TableManager),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, m := range set.Models() {
		mgr, ok := c.overrides[m.Name]
		if !ok {
			if m.PrimaryKey() == nil {
				// Models without a single primary key (join tables) carry no
				// type family of their own.
				continue
			}
			var err error
			mgr, err = NewTableManager(m)
			if err != nil {
				return nil, err
			}
		}
		mgr.bindResolvers(factory)
		c.order = append(c.order, m.Name)
		c.managers[m.Name] = mgr
	}
	for _, name := range c.order {
		if err := c.addRelationships(c.managers[name]); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Manager returns the manager for a model name, or nil.
func (c *Collection) Manager(model string) *TableManager {
	return c.managers[model]
}

// Managers returns the managers in model declaration order.
func (c *Collection) Managers() []*TableManager {
	out := make([]*TableManager, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.managers[name])
	}
	return out
}

// addRelationships folds a model's relationships into its type family:
// an object field to the related type, ID-typed mutation input fields and
// a RelFilter entry. Existing fields are never overwritten, so column
// fields win name collisions.
func (c *Collection) addRelationships(mgr *TableManager) error {
	for _, r := range mgr.Model().Relationships {
		target, ok := c.managers[r.Target]
		if !ok {
			return fmt.Errorf("manager: relationship %q.%q targets unmanaged model %q",
				mgr.Model().Name, r.Name, r.Target)
		}
		fieldName := magql.FieldName(r.Name)

		var (
			baseType     schema.Type = schema.Named(target.Name())
			inputType    schema.Type = schema.ID
			requiredType schema.Type = schema.ID
		)
		if r.Direction.ToMany() {
			baseType = schema.ListOf(baseType)
			inputType = schema.ListOf(schema.ID)
			requiredType = inputType
		} else if r.IsRequired {
			requiredType = schema.NonNullOf(schema.ID)
		}

		if mgr.base.Field(fieldName) == nil {
			f := schema.NewField(fieldName, baseType)
			if r.Comment != "" {
				f.WithDescription(r.Comment)
			}
			if c.factory != nil {
				f.WithResolver(c.factory.Related(mgr.Model().Name, r.Name))
			}
			mgr.base.SetField(f)
		}
		if mgr.input.Field(fieldName) == nil {
			mgr.input.SetField(schema.NewInputField(fieldName, inputType))
		}
		if mgr.inputRequired.Field(fieldName) == nil {
			mgr.inputRequired.SetField(schema.NewInputField(fieldName, requiredType))
		}
		if mgr.filterInput.Field(fieldName) == nil {
			mgr.filterInput.SetField(schema.NewInputField(fieldName, schema.Named(filter.RelFilter.Name)))
		}
	}
	return nil
}

// pageInput is the shared pagination input: 1-based current page and page
// size.
func pageInput() *schema.InputObject {
	return schema.NewInputObject("Page").
		SetField(schema.NewInputField("current", schema.Int)).
		SetField(schema.NewInputField("perPage", schema.Int))
}

// tableUnion builds the union of all base types with its type resolver.
func (c *Collection) tableUnion() *schema.Union {
	names := make([]string, 0, len(c.order))
	for _, name := range c.order {
		names = append(names, c.managers[name].Name())
	}
	u := schema.NewUnion(UnionName, names...)
	if c.factory != nil {
		u.ResolveType = func(value any) string {
			if model := c.factory.ResolveModel(value); model != "" {
				if mgr, ok := c.managers[model]; ok {
					return mgr.Name()
				}
			}
			return ""
		}
	}
	return u
}

// Schema assembles the derived schema: shared filter types, the Page
// input, every manager's type family and root fields, and the checkDelete
// union query.
func (c *Collection) Schema() (*schema.Schema, error) {
	s := schema.New()
	for _, t := range filter.Types() {
		if err := s.AddType(t); err != nil {
			return nil, err
		}
	}
	if err := s.AddType(pageInput()); err != nil {
		return nil, err
	}
	for _, name := range c.order {
		mgr := c.managers[name]
		for _, t := range mgr.Types() {
			if err := s.AddType(t); err != nil {
				return nil, err
			}
		}
		for _, f := range mgr.Query.Fields() {
			s.Query.SetField(f)
		}
		if !c.noMutations {
			for _, f := range mgr.Mutation.Fields() {
				s.Mutation.SetField(f)
			}
		}
	}
	if len(c.order) > 0 {
		if err := s.AddType(c.tableUnion()); err != nil {
			return nil, err
		}
		f := schema.NewField(CheckDeleteQueryName, schema.ListOf(schema.Named(UnionName))).
			WithArgs(
				&schema.Argument{Name: "tableName", Type: schema.String},
				&schema.Argument{Name: "id", Type: schema.NonNullOf(schema.ID)},
			)
		if c.factory != nil {
			f.WithResolver(c.factory.CheckDelete())
		}
		s.Query.SetField(f)
	}
	return s, nil
}
