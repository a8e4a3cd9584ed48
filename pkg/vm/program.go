package vm

// Program is the validation logic behind a script. It is executed once per script group and either accepts
// by returning nil or rejects with an error. A Program must not retain the Context after it returned.
type Program interface {
	Execute(ctx *Context) error
}

// ProgramFunc adapts a function to the Program interface.
type ProgramFunc func(ctx *Context) error

func (p ProgramFunc) Execute(ctx *Context) error {
	return p(ctx)
}

// AlwaysSuccess accepts every script group.
var AlwaysSuccess Program = ProgramFunc(func(*Context) error {
	return nil
})

// AlwaysFailure rejects every script group.
var AlwaysFailure Program = ProgramFunc(func(*Context) error {
	return ErrUnknownExitState
})
