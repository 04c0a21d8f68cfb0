package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	a := Key("temps", map[string]string{"start_date": "2023-01-01", "end_date": "2023-02-01"})
	b := Key("temps", map[string]string{"end_date": "2023-02-01", "start_date": "2023-01-01"})
	assert.Equal(t, a, b, "parameter order does not change the key")
	assert.Equal(t, "temporal:temps:end_date=2023-02-01:start_date=2023-01-01", a)
}

func TestKeyNoParams(t *testing.T) {
	assert.Equal(t, "temporal:datasets", Key("datasets", nil))
}

func TestKeySeparatesEndpoints(t *testing.T) {
	assert.NotEqual(t,
		Key("temps", map[string]string{"limit": "5"}),
		Key("anomalies", map[string]string{"limit": "5"}))
}
