package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"fortio.org/safecast"
)

// TypeSpec describes a type declared by a module.
type TypeSpec struct {
	Namespace string
	Name      string
	Kind      Kind
	Arity     int
	Base      *Type
}

// MethodSpec describes a method declared on a type definition.
type MethodSpec struct {
	Name    string
	Virtual bool
	Arity   int
}

// Context owns every module, type and method of one compilation. Entities
// receive dense IDs; slot 0 of every table is reserved as the invalid
// sentinel. Creation is serialized by the context; reads of created
// entities need no locking.
type Context struct {
	mu sync.RWMutex

	modules     []Module
	inputs      []*InputModule
	inputByName map[string]*InputModule

	types   []*Type
	methods []*Method

	insts        map[string]*Type
	instsOf      map[TypeID][]*Type // instantiations by generic definition
	derived      map[TypeID][]*Type // direct subtypes by base
	arrays       map[TypeID]*Type
	methodOnType map[[2]uint32]*Method
	methodInsts  map[string]*Method
}

// NewContext constructs an empty type system context.
func NewContext() *Context {
	return &Context{
		modules:      make([]Module, 1, 8),
		inputByName:  make(map[string]*InputModule, 8),
		types:        make([]*Type, 1, 64),
		methods:      make([]*Method, 1, 64),
		insts:        make(map[string]*Type),
		instsOf:      make(map[TypeID][]*Type),
		derived:      make(map[TypeID][]*Type),
		arrays:       make(map[TypeID]*Type),
		methodOnType: make(map[[2]uint32]*Method),
		methodInsts:  make(map[string]*Method),
	}
}

// InitModule assigns an ID and a global type to a module variant that embeds
// ModuleBase. Only input modules are indexed by name.
func (c *Context) InitModule(self Module, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initModuleLocked(self, name)
}

func (c *Context) initModuleLocked(self Module, name string) {
	b := self.moduleBase()
	if b.ctx != nil {
		panic(fmt.Sprintf("types: module %q initialized twice", b.name))
	}
	id, err := safecast.Conv[uint32](len(c.modules))
	if err != nil {
		panic(fmt.Errorf("len(modules) overflow: %w", err))
	}
	b.ctx = c
	b.id = ModuleID(id)
	b.name = name
	b.byName = make(map[string]*Type)
	c.modules = append(c.modules, self)
	b.global = c.newTypeLocked(&Type{kind: KindGlobal, module: self, name: GlobalTypeName})
}

// NewInputModule registers an input module.
func (c *Context) NewInputModule(name string) (*InputModule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.inputByName[name]; dup {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateModule, name)
	}
	m := &InputModule{}
	c.initModuleLocked(m, name)
	c.inputs = append(c.inputs, m)
	c.inputByName[name] = m
	return m, nil
}

// InputModule returns the input module registered under name.
func (c *Context) InputModule(name string) (*InputModule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.inputByName[name]
	return m, ok
}

// Modules returns the input modules in registration order.
func (c *Context) Modules() []*InputModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.inputs)
}

// Module returns the module with the given ID.
func (c *Context) Module(id ModuleID) (Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id == NoModuleID || int(id) >= len(c.modules) {
		return nil, false
	}
	return c.modules[id], true
}

// Type returns the type with the given ID.
func (c *Context) Type(id TypeID) (*Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(c.types) {
		return nil, false
	}
	return c.types[id], true
}

// Method returns the method with the given ID.
func (c *Context) Method(id MethodID) (*Method, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id == NoMethodID || int(id) >= len(c.methods) {
		return nil, false
	}
	return c.methods[id], true
}

// Types returns every type created so far in ID order, including global
// types, instantiations and arrays.
func (c *Context) Types() []*Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.types[1:])
}

// Methods returns every method created so far in ID order.
func (c *Context) Methods() []*Method {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.methods[1:])
}

// Owns reports whether t was created by this context.
func (c *Context) Owns(t *Type) bool {
	if t == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int(t.id) < len(c.types) && c.types[t.id] == t
}

// OwnsMethod reports whether m was created by this context.
func (c *Context) OwnsMethod(m *Method) bool {
	if m == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int(m.id) < len(c.methods) && c.methods[m.id] == m
}

// OwnsModule reports whether mod was initialized by this context.
func (c *Context) OwnsModule(mod Module) bool {
	if mod == nil {
		return false
	}
	return mod.moduleBase().ctx == c
}

// DefineType declares a new type in mod.
func (c *Context) DefineType(mod Module, spec TypeSpec) (*Type, error) {
	if !c.OwnsModule(mod) {
		return nil, fmt.Errorf("define %s: %w", spec.Name, ErrForeignEntity)
	}
	switch spec.Kind {
	case KindClass, KindValueType, KindInterface:
	default:
		return nil, fmt.Errorf("define %s: unsupported kind %v", spec.Name, spec.Kind)
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("define type in %q: empty name", mod.Name())
	}
	if spec.Arity < 0 {
		return nil, fmt.Errorf("define %s: negative arity %d", spec.Name, spec.Arity)
	}
	if spec.Base != nil && !c.Owns(spec.Base) {
		return nil, fmt.Errorf("define %s: base: %w", spec.Name, ErrForeignEntity)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	b := mod.moduleBase()
	key := qualifiedKey(spec.Namespace, spec.Name)
	if _, dup := b.byName[key]; dup {
		return nil, fmt.Errorf("%w: %s in module %q", ErrDuplicateType, qualifiedName(spec.Namespace, spec.Name), b.name)
	}
	t := c.newTypeLocked(&Type{
		kind:      spec.Kind,
		module:    mod,
		namespace: spec.Namespace,
		name:      spec.Name,
		arity:     spec.Arity,
		base:      spec.Base,
	})
	b.types = append(b.types, t)
	b.byName[key] = t
	if spec.Base != nil {
		c.derived[spec.Base.id] = append(c.derived[spec.Base.id], t)
	}
	return t, nil
}

// SetBase sets the base type of a declared type. Loaders call it after all
// types of a compilation are declared.
func (c *Context) SetBase(t, base *Type) error {
	if !c.Owns(t) || (base != nil && !c.Owns(base)) {
		return fmt.Errorf("set base of %s: %w", t, ErrForeignEntity)
	}
	if t.def != nil || t.kind == KindArray || t.kind == KindGlobal {
		return fmt.Errorf("set base of %s: not a declared type", t)
	}
	for cur := base; cur != nil; cur = cur.Definition().base {
		if cur.Definition() == t {
			return fmt.Errorf("set base of %s: inheritance cycle through %s", t, base)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.base != nil {
		c.derived[t.base.id] = slices.DeleteFunc(c.derived[t.base.id], func(d *Type) bool { return d == t })
	}
	t.base = base
	if base != nil {
		c.derived[base.id] = append(c.derived[base.id], t)
	}
	return nil
}

// Derived returns every type whose base chain reaches base: declared
// subtypes at any depth and the instantiations of generic subtypes. The
// result reflects the types registered so far.
func (c *Context) Derived(base *Type) []*Type {
	if base == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Type
	queue := slices.Clone(c.derived[base.id])
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		out = append(out, t)
		queue = append(queue, c.instsOf[t.id]...)
		queue = append(queue, c.derived[t.id]...)
	}
	return out
}

// DefineMethod declares a method on a type definition.
func (c *Context) DefineMethod(owner *Type, spec MethodSpec) (*Method, error) {
	if !c.Owns(owner) {
		return nil, fmt.Errorf("define method %s: %w", spec.Name, ErrForeignEntity)
	}
	if owner.def != nil || owner.kind == KindArray {
		return nil, fmt.Errorf("define method %s: owner %s is not a definition", spec.Name, owner)
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("define method on %s: empty name", owner)
	}
	if spec.Arity < 0 {
		return nil, fmt.Errorf("define method %s: negative arity %d", spec.Name, spec.Arity)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.newMethodLocked(&Method{
		name:    spec.Name,
		owner:   owner,
		virtual: spec.Virtual,
		arity:   spec.Arity,
	})
	owner.methods = append(owner.methods, m)
	return m, nil
}

// Methods returns the methods declared on the type's definition.
func (t *Type) Methods() []*Method {
	def := t.Definition()
	if def.module == nil {
		return nil
	}
	ctx := def.module.Context()
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return slices.Clone(def.methods)
}

// Instantiate applies a generic definition to type arguments. The same
// definition and arguments always produce the same *Type.
func (c *Context) Instantiate(def *Type, args ...*Type) (*Type, error) {
	if !c.Owns(def) {
		return nil, fmt.Errorf("instantiate: %w", ErrForeignEntity)
	}
	if !def.IsGenericDefinition() {
		return nil, fmt.Errorf("instantiate %s: %w", def, ErrNotGeneric)
	}
	if len(args) != def.arity {
		return nil, fmt.Errorf("instantiate %s: %w: got %d, want %d", def, ErrArityMismatch, len(args), def.arity)
	}
	if err := c.checkArgs(args); err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", def, err)
	}

	key := argsKey(uint32(def.id), args)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.insts[key]; ok {
		return t, nil
	}
	t := c.newTypeLocked(&Type{
		kind:      def.kind,
		module:    def.module,
		namespace: def.namespace,
		name:      def.name,
		arity:     def.arity,
		def:       def,
		args:      slices.Clone(args),
	})
	c.insts[key] = t
	c.instsOf[def.id] = append(c.instsOf[def.id], t)
	return t, nil
}

// ArrayOf returns the single-dimensional array type over elem.
func (c *Context) ArrayOf(elem *Type) (*Type, error) {
	if err := c.checkArgs([]*Type{elem}); err != nil {
		return nil, fmt.Errorf("array: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.arrays[elem.id]; ok {
		return t, nil
	}
	t := c.newTypeLocked(&Type{
		kind:      KindArray,
		module:    elem.module,
		namespace: elem.namespace,
		name:      elem.name + "[]",
		elem:      elem,
	})
	c.arrays[elem.id] = t
	return t, nil
}

// MethodOnType returns the method typical declared on owner's generic
// definition, as seen on the instantiation owner.
func (c *Context) MethodOnType(typical *Method, owner *Type) (*Method, error) {
	if !c.OwnsMethod(typical) || !c.Owns(owner) {
		return nil, fmt.Errorf("method on type: %w", ErrForeignEntity)
	}
	if typical.typical != nil || typical.def != nil {
		return nil, fmt.Errorf("method on type: %s is not a declared method", typical)
	}
	if owner.def != typical.owner {
		return nil, fmt.Errorf("method on type: %s is not an instantiation of %s", owner, typical.owner)
	}
	key := [2]uint32{uint32(typical.id), uint32(owner.id)}
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.methodOnType[key]; ok {
		return m, nil
	}
	m := c.newMethodLocked(&Method{
		name:    typical.name,
		owner:   owner,
		virtual: typical.virtual,
		arity:   typical.arity,
		typical: typical,
	})
	c.methodOnType[key] = m
	return m, nil
}

// InstantiateMethod applies a generic method definition to type arguments.
func (c *Context) InstantiateMethod(def *Method, args ...*Type) (*Method, error) {
	if !c.OwnsMethod(def) {
		return nil, fmt.Errorf("instantiate method: %w", ErrForeignEntity)
	}
	if !def.IsGenericDefinition() {
		return nil, fmt.Errorf("instantiate method %s: %w", def, ErrNotGeneric)
	}
	if len(args) != def.arity {
		return nil, fmt.Errorf("instantiate method %s: %w: got %d, want %d", def, ErrArityMismatch, len(args), def.arity)
	}
	if err := c.checkArgs(args); err != nil {
		return nil, fmt.Errorf("instantiate method %s: %w", def, err)
	}
	key := argsKey(uint32(def.id), args)
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.methodInsts[key]; ok {
		return m, nil
	}
	m := c.newMethodLocked(&Method{
		name:    def.name,
		owner:   def.owner,
		virtual: def.virtual,
		arity:   def.arity,
		def:     def,
		args:    slices.Clone(args),
	})
	c.methodInsts[key] = m
	return m, nil
}

func (c *Context) checkArgs(args []*Type) error {
	for i, a := range args {
		if a == nil {
			return fmt.Errorf("type argument %d is nil", i)
		}
		if !c.Owns(a) {
			return fmt.Errorf("type argument %d: %w", i, ErrForeignEntity)
		}
		if a.IsGenericDefinition() {
			return fmt.Errorf("type argument %d: open generic definition %s", i, a)
		}
		if a.kind == KindGlobal {
			return fmt.Errorf("type argument %d: global type %s", i, a)
		}
	}
	return nil
}

func (c *Context) newTypeLocked(t *Type) *Type {
	id, err := safecast.Conv[uint32](len(c.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	t.id = TypeID(id)
	c.types = append(c.types, t)
	return t
}

func (c *Context) newMethodLocked(m *Method) *Method {
	id, err := safecast.Conv[uint32](len(c.methods))
	if err != nil {
		panic(fmt.Errorf("len(methods) overflow: %w", err))
	}
	m.id = MethodID(id)
	c.methods = append(c.methods, m)
	return m
}

// argsKey builds a stable map key for an instantiation; Go maps cannot key
// on slices.
func argsKey(def uint32, args []*Type) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(uint64(def), 10))
	sb.WriteByte(':')
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(a.id), 10))
	}
	return sb.String()
}

func qualifiedName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}
