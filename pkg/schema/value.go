package schema

// Kind discriminates the Value tagged union.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindDate
	KindTimestamp
)

// Value is a decoded field value: a compact tagged union over the closed
// type set. Integer, boolean, date (epoch days) and timestamp (epoch
// nanoseconds) share the num slot; floats and strings have their own.
// The zero Value is Null.
type Value struct {
	kind Kind
	num  int64
	f    float64
	str  string
}

// Null returns the null value.
func Null() Value {
	return Value{}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Int returns an integer value.
func Int(v int64) Value {
	return Value{kind: KindInteger, num: v}
}

// Float returns a float value.
func Float(v float64) Value {
	return Value{kind: KindFloat, f: v}
}

// Bool returns a boolean value.
func Bool(v bool) Value {
	val := Value{kind: KindBoolean}
	if v {
		val.num = 1
	}
	return val
}

// Date returns a date value as whole days since 1970-01-01.
func Date(days int32) Value {
	return Value{kind: KindDate, num: int64(days)}
}

// Timestamp returns a timestamp value as nanoseconds since the Unix
// epoch, UTC.
func Timestamp(nanos int64) Value {
	return Value{kind: KindTimestamp, num: nanos}
}

// Kind returns the union discriminant.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Str returns the string payload; valid only for KindString.
func (v Value) Str() string {
	return v.str
}

// Int64 returns the integer payload; valid only for KindInteger.
func (v Value) Int64() int64 {
	return v.num
}

// Float64 returns the float payload; valid only for KindFloat.
func (v Value) Float64() float64 {
	return v.f
}

// Bool returns the boolean payload; valid only for KindBoolean.
func (v Value) Bool() bool {
	return v.num != 0
}

// DateDays returns the epoch day count; valid only for KindDate.
func (v Value) DateDays() int32 {
	return int32(v.num)
}

// TimestampNanos returns epoch nanoseconds; valid only for KindTimestamp.
func (v Value) TimestampNanos() int64 {
	return v.num
}

// stringOverhead approximates per-string bookkeeping cost (header plus
// allocator slack) in the batch size estimate.
const stringOverhead = 24

// EstimateSize returns the estimated in-memory byte cost of the value,
// used by the batch accumulator to enforce its byte ceiling.
func (v Value) EstimateSize() int {
	switch v.kind {
	case KindNull:
		return 1
	case KindString:
		return len(v.str) + stringOverhead
	case KindInteger, KindFloat, KindTimestamp:
		return 8
	case KindBoolean:
		return 1
	case KindDate:
		return 4
	default:
		return 1
	}
}

// Row is a fixed-length ordered sequence of values, one per declared
// schema column, aligned to the schema's column order.
type Row []Value

// EstimateSize sums the per-field cost estimates of the row.
func (r Row) EstimateSize() int {
	size := 0
	for _, v := range r {
		size += v.EstimateSize()
	}
	return size
}
