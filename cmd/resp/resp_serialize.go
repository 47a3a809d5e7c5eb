// Provide serialization functions for compliance with the REdis Serialization Protocol
// specification, see: https://redis.io/docs/reference/protocol-spec/#resp-protocol-description
package resp

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// SimpleString is sent as a status reply (+OK) rather than a bulk string.
type SimpleString string

// OK is the usual status reply for commands with nothing to return.
const OK = SimpleString("OK")

func Serialize(v any) (string, error) {
	var b strings.Builder
	if err := write(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func write(b *strings.Builder, v any) error {
	if v == nil {
		b.WriteString(SerializeNil())
		return nil
	}

	switch v := v.(type) {
	case error:
		b.WriteString(SerializeError(v))
		return nil
	case SimpleString:
		b.WriteString(SerializeSimpleStr(string(v)))
		return nil
	case string:
		b.WriteString(SerializeStr(v))
		return nil
	case int:
		b.WriteString(SerializeInt(v))
		return nil
	case int64:
		b.WriteString(":" + strconv.FormatInt(v, 10) + "\r\n")
		return nil
	case bool:
		b.WriteString(SerializeBool(v))
		return nil
	case []string:
		b.WriteString("*" + strconv.Itoa(len(v)) + "\r\n")
		for _, s := range v {
			b.WriteString(SerializeStr(s))
		}
		return nil
	}

	tp := reflect.TypeOf(v)
	switch tp.Kind() {
	case reflect.Struct:
		stc := reflect.ValueOf(v)
		b.WriteString("%" + strconv.Itoa(stc.NumField()) + "\r\n")
		for i := 0; i < stc.NumField(); i++ {
			b.WriteString(SerializeStr(tp.Field(i).Name))
			if err := write(b, stc.Field(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		mp := reflect.ValueOf(v)
		keys := mp.MapKeys()
		// Stable output for string keyed maps.
		if tp.Key().Kind() == reflect.String {
			sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		}

		b.WriteString("%" + strconv.Itoa(mp.Len()) + "\r\n")
		for _, k := range keys {
			if err := write(b, k.Interface()); err != nil {
				return err
			}
			if err := write(b, mp.MapIndex(k).Interface()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice, reflect.Array:
		arr := reflect.ValueOf(v)
		b.WriteString("*" + strconv.Itoa(arr.Len()) + "\r\n")
		for i := 0; i < arr.Len(); i++ {
			if err := write(b, arr.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	}

	return errors.NotSupportedf("serializing value of type %s", tp)
}

func SerializeNil() string {
	return "$-1\r\n"
}

func SerializeBool(b bool) string {
	if b {
		return "#t\r\n"
	}
	return "#f\r\n"
}

func SerializeSimpleStr(str string) string {
	return "+" + str + "\r\n"
}

func SerializeStr(str string) string {
	return "$" + strconv.Itoa(len(str)) + "\r\n" + str + "\r\n"
}

// SerializeError writes err as an error reply. Line breaks would end the
// reply early, so they are replaced by spaces.
func SerializeError(err error) string {
	msg := strings.NewReplacer("\r", " ", "\n", " ").Replace(err.Error())
	return "-" + msg + "\r\n"
}

func SerializeInt(n int) string {
	return ":" + strconv.Itoa(n) + "\r\n"
}

// SerializeCommand encodes args the way clients send commands: an array
// of bulk strings.
func SerializeCommand(args []string) string {
	s, _ := Serialize(args)
	return s
}
