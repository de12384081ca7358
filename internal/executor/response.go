package executor

import (
	"bytes"
	"encoding/json"
)

// Response is spec.md §6's GraphQL response envelope: the partial-or-null
// data and any located errors.
type Response struct {
	Data   any              `json:"data"`
	Errors []*ResponseError `json:"errors,omitempty"`
}

// DataField is one top-level entry of an OrderedData, in document order.
type DataField struct {
	Name  string
	Value any
}

// OrderedData is Response.Data's concrete shape for a multi-root-field
// query. encoding/json always serializes a map[string]T's keys in sorted
// order, which would silently reorder the wire response relative to the
// query document (spec.md §5's "final data order matches the document");
// OrderedData keeps insertion order and marshals itself accordingly
// instead of going through the map codec path.
type OrderedData []DataField

// Get returns the value stored under name, for map-like lookup.
func (d OrderedData) Get(name string) (any, bool) {
	for _, f := range d {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func (d OrderedData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ResponseError is one entry of Response.Errors: a message located against
// the response by field path, plus whatever extensions the error kind
// wants to surface (never a stack trace or other internal detail for a
// VisibilityInternal error — those get a generic message and a trace id).
type ResponseError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// rootFieldOutcome is the result of running one root field: exactly one of
// value/err is meaningful, mirroring spec.md §4.5's RootFieldResult before
// the nullability rule collapses it into the shared Response.
type rootFieldOutcome struct {
	alias      string
	isNullable bool
	value      any
	err        error
}

// assembleResponse applies spec.md §4.5's error-containment rule across a
// set of independently-resolved root field outcomes, in their declared
// (document) order: a nullable field's error is appended to Errors and its
// value replaced with nil; a non-nullable field's error nulls the entire
// response and short-circuits to a single error, matching property 9's
// "exactly one error" requirement even when other fields already
// succeeded.
func assembleResponse(outcomes []rootFieldOutcome, traceID string) *Response {
	data := make(OrderedData, 0, len(outcomes))
	var errs []*ResponseError

	for _, o := range outcomes {
		if o.err == nil {
			data = append(data, DataField{Name: o.alias, Value: o.value})
			continue
		}

		re := toResponseError(o.err, o.alias, traceID)
		if !o.isNullable {
			return &Response{Data: nil, Errors: []*ResponseError{re}}
		}
		data = append(data, DataField{Name: o.alias, Value: nil})
		errs = append(errs, re)
	}

	return &Response{Data: data, Errors: errs}
}

// toResponseError converts an internal error into the shape a caller may
// surface, applying the visibility rule of spec.md §7: a User error's
// message is passed through, an Internal one is replaced with a generic
// message plus a trace id extension so nothing about the invariant
// violation leaks to the client. rootAlias anchors the path when the error
// carries none of its own (a bare wrapped NDC client error, for instance).
func toResponseError(err error, rootAlias string, traceID string) *ResponseError {
	ee, ok := err.(*ExecutionError)
	if !ok {
		ee = userError([]string{rootAlias}, "NDCRequestFailed", "%v", err)
	}

	path := ee.Path
	if len(path) == 0 {
		path = []string{rootAlias}
	}
	fullPath := make([]any, len(path))
	for i, seg := range path {
		fullPath[i] = seg
	}

	if ee.Visibility == VisibilityInternal {
		ext := map[string]any{"code": "InternalError"}
		if traceID != "" {
			ext["traceId"] = traceID
		}
		return &ResponseError{Message: "internal error", Path: fullPath, Extensions: ext}
	}
	return &ResponseError{Message: ee.Message, Path: fullPath, Extensions: map[string]any{"code": ee.Kind}}
}
