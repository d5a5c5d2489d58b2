package stats

import "reflect"
import "sync/atomic"
import "strconv"
import "strings"

/// Counter_t is a statistical counter.
type Counter_t int64

/// Inc increments the counter.
func (c *Counter_t) Inc() {
	atomic.AddInt64((*int64)(c), 1)
}

/// Get returns the current count.
func (c *Counter_t) Get() int64 {
	return atomic.LoadInt64((*int64)(c))
}

/// Stats2String converts a struct of counters to a printable string.
func Stats2String(st interface{}) string {
	v := reflect.ValueOf(st)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
	}
	return s + "\n"
}
