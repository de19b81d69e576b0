package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceBasics(t *testing.T) {
	assert := assert.New(t)

	_, err := NewTrace(nil)
	assert.Error(err)

	_, err = NewTrace([]string{"a", "b", "a"})
	assert.Error(err)

	tr, err := NewTrace([]string{"beta", "sigma"})
	assert.NoError(err)
	assert.Equal(0, tr.Len())
	assert.Equal([]string{"beta", "sigma"}, tr.Columns())

	assert.Error(tr.Record([]float64{1.0}))

	src := []float64{1.5, 2.5}
	assert.NoError(tr.Record(src))
	src[0] = -1 // must not alias
	assert.NoError(tr.Record([]float64{3.5, 4.5}))
	assert.Equal(2, tr.Len())

	row, err := tr.Row(0)
	assert.NoError(err)
	assert.Equal([]float64{1.5, 2.5}, row)

	_, err = tr.Row(2)
	assert.Error(err)

	col, err := tr.Column("sigma")
	assert.NoError(err)
	assert.Equal([]float64{2.5, 4.5}, col)

	_, err = tr.Column("nope")
	assert.Error(err)
}

func TestTraceAppend(t *testing.T) {
	assert := assert.New(t)

	t1, err := NewTrace([]string{"x"})
	assert.NoError(err)
	assert.NoError(t1.Record([]float64{1}))

	t2, err := NewTrace([]string{"x"})
	assert.NoError(err)
	assert.NoError(t2.Record([]float64{2}))
	assert.NoError(t2.Record([]float64{3}))

	assert.NoError(t1.Append(t2))
	assert.Equal(3, t1.Len())
	col, err := t1.Column("x")
	assert.NoError(err)
	assert.Equal([]float64{1, 2, 3}, col)

	t3, err := NewTrace([]string{"y"})
	assert.NoError(err)
	assert.Error(t1.Append(t3))
}

func TestTraceCSV(t *testing.T) {
	assert := assert.New(t)

	tr, err := NewTrace([]string{"a", "b"})
	assert.NoError(err)
	assert.NoError(tr.Record([]float64{1, 2}))
	assert.NoError(tr.Record([]float64{0.5, -3}))

	var buf bytes.Buffer
	assert.NoError(tr.WriteCSV(&buf))
	assert.Equal("a,b\n1,2\n0.5,-3\n", buf.String())
}
