package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Date
		wantErr bool
	}{
		{name: "date", in: "2024-03-01", want: NewDate(2024, time.March, 1)},
		{name: "RFC 3339 keeps the calendar day", in: "2024-03-01T23:30:00-05:00", want: NewDate(2024, time.March, 1)},
		{name: "invalid", in: "01/03/2024", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("ParseDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Due Date `json:"due"`
	}

	data, err := json.Marshal(payload{Due: NewDate(2024, time.January, 15)})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"due":"2024-01-15"}`, string(data))

	data, err = json.Marshal(payload{})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"due":null}`, string(data))

	var p payload
	assert.NoError(t, json.Unmarshal([]byte(`{"due":"2024-02-29"}`), &p))
	assert.Equal(t, "2024-02-29", p.Due.String())

	p = payload{}
	assert.NoError(t, json.Unmarshal([]byte(`{"due":null}`), &p))
	assert.True(t, p.Due.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"due":"lol"}`), &p))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	assert.NoError(t, d.Scan(time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-02", d.String())

	assert.NoError(t, d.Scan([]byte("2024-05-03")))
	assert.Equal(t, "2024-05-03", d.String())

	assert.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	v, err := Date{}.Value()
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestDecimal_MarshalsAsNumber(t *testing.T) {
	data, err := json.Marshal(map[string]decimal.Decimal{"amount": decimal.New(15050, -2)})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"amount":150.5}`, string(data))
}

func TestCleanOrdering(t *testing.T) {
	allowed := map[string]string{"dueDate": "due_date", "amount": "amount"}
	defaults := []DBOrdering{{Field: "created_at", Ascending: true}}

	tests := []struct {
		name     string
		ordering []DBOrdering
		want     []DBOrdering
	}{
		{name: "nothing: defaults", want: defaults},
		{name: "unknown only: defaults", ordering: []DBOrdering{{Field: "password_hash"}}, want: defaults},
		{
			name:     "renamed to columns, unknown dropped",
			ordering: []DBOrdering{{Field: "amount"}, {Field: "lol"}, {Field: "dueDate", Ascending: true}},
			want:     []DBOrdering{{Field: "amount"}, {Field: "due_date", Ascending: true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanOrdering(tt.ordering, allowed, defaults...))
		})
	}

	assert.Equal(t, "due_date ASC, amount DESC", OrderByClause([]DBOrdering{{Field: "due_date", Ascending: true}, {Field: "amount"}}))
}
