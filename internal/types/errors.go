package types

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeNotFound is wrapped by every name-based lookup miss.
	ErrTypeNotFound = errors.New("type not found")
	// ErrDuplicateModule indicates that a module name is already registered.
	ErrDuplicateModule = errors.New("duplicate module")
	// ErrDuplicateType indicates that a module already declares the type name.
	ErrDuplicateType = errors.New("duplicate type")
	// ErrForeignEntity indicates an entity created by a different Context.
	ErrForeignEntity = errors.New("entity belongs to a different type system context")
	// ErrNotGeneric indicates an instantiation of a non-generic definition.
	ErrNotGeneric = errors.New("not a generic definition")
	// ErrArityMismatch indicates a wrong number of type arguments.
	ErrArityMismatch = errors.New("type argument count mismatch")
)

// TypeNotFoundError reports a failed name-based lookup. It carries the
// requested name and the module that was searched.
type TypeNotFoundError struct {
	Namespace string
	Name      string
	Module    Module
}

func (e *TypeNotFoundError) Error() string {
	scope := "<nil>"
	if e.Module != nil {
		scope = e.Module.Name()
	}
	full := e.Name
	if e.Namespace != "" {
		full = e.Namespace + "." + e.Name
	}
	return fmt.Sprintf("type %q (namespace %q, name %q) not found in module %q", full, e.Namespace, e.Name, scope)
}

func (e *TypeNotFoundError) Unwrap() error { return ErrTypeNotFound }
