package medium

import "fmt"

type idError struct {
	base error
	id   int
}

func (e idError) Error() string { return fmt.Sprintf("%v: id=%d", e.base, e.id) }
func (e idError) Unwrap() error { return e.base }

func errWithID(base error, id int) error { return idError{base: base, id: id} }

type nameError struct {
	base error
	name string
}

func (e nameError) Error() string { return fmt.Sprintf("%v: %s", e.base, e.name) }
func (e nameError) Unwrap() error { return e.base }

func errWithName(base error, name string) error { return nameError{base: base, name: name} }
