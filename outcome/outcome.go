// Package outcome defines the uniform result wrapper every data-access
// operation returns across the service boundary. Callers switch on OK
// instead of sniffing error shapes per call site.
package outcome

type Outcome[T any] struct {
	OK    bool   `json:"ok"`
	Data  T      `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func Ok[T any](data T) Outcome[T] {
	return Outcome[T]{OK: true, Data: data}
}

func Fail[T any](err error) Outcome[T] {
	if err == nil {
		return Outcome[T]{OK: false, Error: "unknown error"}
	}
	return Outcome[T]{OK: false, Error: err.Error()}
}

// Completion is the fail-open result of a completion check: Success reports
// whether the backend query went through, Completed whether a matching
// response exists. A failed query yields {false, false}, never an error.
type Completion struct {
	Success   bool `json:"success"`
	Completed bool `json:"completed"`
}
