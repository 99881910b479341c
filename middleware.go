package lmstfy

// HandlerFunc is a function that processes a job.
type HandlerFunc func(JobContext) error

// MiddlewareFunc wraps a HandlerFunc with cross-cutting concerns
// (onion model: the first added runs outermost).
//
// Example:
//
//	func timing(ctx lmstfy.JobContext, next lmstfy.HandlerFunc) error {
//	    start := time.Now()
//	    err := next(ctx)
//	    log.Printf("%s done in %s", ctx.Job.ID, time.Since(start))
//	    return err
//	}
type MiddlewareFunc func(ctx JobContext, next HandlerFunc) error

// middlewareChain holds an ordered list of middleware.
type middlewareChain struct {
	middleware []namedMiddleware
}

type namedMiddleware struct {
	name string
	fn   MiddlewareFunc
}

func newMiddlewareChain() *middlewareChain {
	return &middlewareChain{}
}

// Add appends middleware to the end of the chain.
func (c *middlewareChain) Add(name string, fn MiddlewareFunc) {
	c.middleware = append(c.middleware, namedMiddleware{name: name, fn: fn})
}

// Remove removes middleware by name from the chain.
func (c *middlewareChain) Remove(name string) {
	for i, m := range c.middleware {
		if m.name == name {
			c.middleware = append(c.middleware[:i], c.middleware[i+1:]...)
			return
		}
	}
}

// then wraps handler with the chain, innermost last.
func (c *middlewareChain) then(handler HandlerFunc) HandlerFunc {
	h := handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw := c.middleware[i].fn
		next := h
		h = func(ctx JobContext) error {
			return mw(ctx, next)
		}
	}
	return h
}
