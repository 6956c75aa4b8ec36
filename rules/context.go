package rules

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/dhamidi/styler/errs"
	"github.com/dhamidi/styler/java/parser"
	"github.com/dhamidi/styler/java/scanner"
)

// TypeResolutionConfig lists the classpath and module-path roots
// available to symbol resolution. Both lists may be empty; without a
// Scanner no name resolves through the classpath, so wildcard imports
// are never expanded.
type TypeResolutionConfig struct {
	ClasspathRoots  []string
	ModulePathRoots []string
	Scanner         scanner.ClasspathScanner
}

// Context is the transformation context handed to rules. It is
// read-only with respect to the AST: rules must not mutate the arena.
// One context serves one file; the pipeline serializes all rule calls
// on it, so no internal locking is needed beyond the deadline, which
// the batch processor may move from another goroutine on cancellation.
type Context struct {
	arena    *parser.Arena
	root     parser.NodeID
	index    *parser.PositionIndex
	source   []byte
	filePath string
	tokens   []parser.Token
	comments []parser.Token
	trivia   parser.Trivia

	deadline atomic.Int64 // unix nanos, 0 = none
	security parser.SecurityLimits
	typeRes  TypeResolutionConfig
}

func NewContext(result *parser.Result, source []byte, filePath string, security parser.SecurityLimits, typeRes TypeResolutionConfig) *Context {
	ctx := &Context{
		arena:    result.Arena,
		root:     result.Root,
		index:    parser.NewPositionIndex(result.Arena, result.Root, source),
		source:   source,
		filePath: filePath,
		tokens:   result.Tokens,
		comments: result.Comments,
		trivia:   result.Trivia,
		security: security,
		typeRes:  typeRes,
	}
	return ctx
}

func (c *Context) Arena() *parser.Arena              { return c.arena }
func (c *Context) Root() parser.NodeID               { return c.root }
func (c *Context) Index() *parser.PositionIndex      { return c.index }
func (c *Context) Source() []byte                    { return c.source }
func (c *Context) FilePath() string                  { return c.filePath }
func (c *Context) Tokens() []parser.Token            { return c.tokens }
func (c *Context) Comments() []parser.Token          { return c.comments }
func (c *Context) Trivia() parser.Trivia             { return c.trivia }
func (c *Context) Security() parser.SecurityLimits   { return c.security }
func (c *Context) TypeResolution() TypeResolutionConfig { return c.typeRes }

// TextOf returns the source text covered by the node.
func (c *Context) TextOf(id parser.NodeID) string {
	return string(c.source[c.arena.Start(id):c.arena.End(id)])
}

func (c *Context) LineOf(offset int32) int   { return c.index.LineOf(offset) }
func (c *Context) ColumnOf(offset int32) int { return c.index.ColumnOf(offset) }

// SetDeadline installs or moves the wall-clock deadline. The zero time
// clears it. Safe to call concurrently with CheckDeadline.
func (c *Context) SetDeadline(t time.Time) {
	if t.IsZero() {
		c.deadline.Store(0)
		return
	}
	c.deadline.Store(t.UnixNano())
}

// Deadline returns the current deadline, or the zero time.
func (c *Context) Deadline() time.Time {
	ns := c.deadline.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// CheckDeadline is the cooperative cancellation point. Rules call it
// inside any loop that can see O(N) work; the first call past the
// deadline reports ExecutionTimeout for the file.
func (c *Context) CheckDeadline() error {
	ns := c.deadline.Load()
	if ns != 0 && time.Now().UnixNano() > ns {
		return errs.WrapFile(errs.KindTimeout, c.filePath, errors.New("execution deadline exceeded"))
	}
	return nil
}
