package model

// Decorator adjusts a descriptor after synthesis and before rendering.
type Decorator interface {
	Decorate(*Descriptor) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*Descriptor) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(desc *Descriptor) error {
	return fn(desc)
}
