package logger

import (
	"fmt"
	"strconv"
	"time"
)

// StringField returns a LogField for a string value.
func StringField(key, value string) LogField {
	return LogField{Key: key, Value: value}
}

// IntField returns a LogField for an integer value.
func IntField(key string, value int) LogField {
	return LogField{Key: key, Value: strconv.Itoa(value)}
}

// Int64Field returns a LogField for an int64 value.
func Int64Field(key string, value int64) LogField {
	return LogField{Key: key, Value: strconv.FormatInt(value, 10)}
}

// Float64Field returns a LogField for a float value, trimmed of trailing zeros.
func Float64Field(key string, value float64) LogField {
	return LogField{Key: key, Value: strconv.FormatFloat(value, 'f', -1, 64)}
}

// BoolField returns a LogField for a boolean value.
func BoolField(key string, value bool) LogField {
	return LogField{Key: key, Value: strconv.FormatBool(value)}
}

// DurationField returns a LogField for a time.Duration value.
func DurationField(key string, value time.Duration) LogField {
	return LogField{Key: key, Value: value.String()}
}

// TimeField returns a LogField for a time.Time value formatted as RFC3339.
func TimeField(key string, value time.Time) LogField {
	return LogField{Key: key, Value: value.Format(time.RFC3339)}
}

// ErrorField returns a LogField for an error value.
func ErrorField(err error) LogField {
	if err == nil {
		return LogField{Key: "error", Value: "<nil>"}
	}
	return LogField{Key: "error", Value: err.Error()}
}

// Field converts any value to its string form.
func Field[T any](key string, value T) LogField {
	return LogField{Key: key, Value: stringify(value)}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// CorrelationIDField returns a LogField for a correlation ID.
func CorrelationIDField(id string) LogField {
	return StringField(CorrelationIDFieldKey, id)
}

// Attendance-specific fields.

func UserIDField(id string) LogField {
	return StringField("user_id", id)
}

func ChannelField(id string) LogField {
	return StringField("channel_id", id)
}

func CategoryField(c string) LogField {
	return StringField("category", c)
}

func ProviderField(name string) LogField {
	return StringField("llm_provider", name)
}

func MessageTSField(ts string) LogField {
	return StringField("message_ts", ts)
}

func RecordIDField(id int64) LogField {
	return Int64Field("record_id", id)
}

func ConfidenceField(c float64) LogField {
	return Float64Field("confidence", c)
}

func QueryTypeField(qt string) LogField {
	return StringField("query_type", qt)
}

// Request fields.

func HTTPMethodField(m string) LogField {
	return StringField("http_method", m)
}

func HTTPPathField(p string) LogField {
	return StringField("http_path", p)
}

func HTTPStatusField(status int) LogField {
	return IntField("http_status", status)
}

func ClientIPField(ip string) LogField {
	return StringField("client_ip", ip)
}

func GrpcMethodField(method string) LogField {
	return StringField("grpc_method", method)
}
