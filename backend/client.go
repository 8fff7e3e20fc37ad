package backend

import "context"

// Record is one row crossing the backend boundary.
type Record map[string]any

// FilterOp is a predicate operator applied to a column.
type FilterOp string

const (
	OpEq       FilterOp = "eq"
	OpLike     FilterOp = "like"
	OpIn       FilterOp = "in"
	OpGte      FilterOp = "gte"
	OpLte      FilterOp = "lte"
	OpContains FilterOp = "contains"
)

// Filter narrows a Select, Update, or Delete to matching rows.
type Filter struct {
	Column string
	Op     FilterOp
	Value  any
}

// Eq matches rows whose column equals value.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// Like matches string columns against a pattern where % matches any
// run of characters.
func Like(column, pattern string) Filter {
	return Filter{Column: column, Op: OpLike, Value: pattern}
}

// In matches rows whose column equals any of the given values.
func In(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// Gte matches rows whose numeric column is at least value.
func Gte(column string, value float64) Filter {
	return Filter{Column: column, Op: OpGte, Value: value}
}

// Lte matches rows whose numeric column is at most value.
func Lte(column string, value float64) Filter {
	return Filter{Column: column, Op: OpLte, Value: value}
}

// Contains matches rows whose list column contains value.
func Contains(column string, value any) Filter {
	return Filter{Column: column, Op: OpContains, Value: value}
}

// EventAction names the row change a realtime Event describes.
type EventAction string

const (
	EventInsert EventAction = "INSERT"
	EventUpdate EventAction = "UPDATE"
	EventDelete EventAction = "DELETE"
)

// Event is one realtime row change delivered to a subscriber.
type Event struct {
	Table  string
	Action EventAction
	Record Record
	Old    Record
}

// Client is the application's view of the remote backend. Calls resolve
// to data or a structured *Error; the client performs no retries and
// assumes no idempotency.
type Client interface {
	// Select returns the rows of table matching every filter.
	Select(ctx context.Context, table string, filters ...Filter) ([]Record, error)

	// Insert adds a row and returns it as stored.
	Insert(ctx context.Context, table string, rec Record) (Record, error)

	// Update applies the record's fields to every matching row and
	// returns the updated rows.
	Update(ctx context.Context, table string, rec Record, filters ...Filter) ([]Record, error)

	// Delete removes every matching row.
	Delete(ctx context.Context, table string, filters ...Filter) error

	// RPC invokes a stored procedure with the given payload.
	RPC(ctx context.Context, proc string, payload Record) (any, error)

	// Upload stores an object and returns its public URL.
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)

	// Subscribe delivers row-change events for table, restricted to
	// rows matching the filters. The returned func cancels the
	// subscription.
	Subscribe(ctx context.Context, table string, fn func(Event), filters ...Filter) (func(), error)
}
