package nserr

// Option is an Error option function
type Option func(*Error)

func WithMessage(msg string) Option     { return func(e *Error) { e.Message = msg } }
func WithSeverity(s Severity) Option    { return func(e *Error) { e.Severity = s } }
func WithNodeID(id string) Option       { return func(e *Error) { e.NodeID = id } }
func WithTarget(target string) Option   { return func(e *Error) { e.Target = target } }
func WithElement(element string) Option { return func(e *Error) { e.Element = element } }
