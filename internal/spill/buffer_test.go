// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package spill

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spillRec struct {
	ID     string   `cbor:"id"`
	Amount float64  `cbor:"amount"`
	Count  int64    `cbor:"count"`
	Tier   *string  `cbor:"tier"`
	Score  *float64 `cbor:"score"`
}

func TestBufferRoundTrip(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	buf, err := codec.NewBuffer(t.TempDir(), "spill-*.cbor")
	require.NoError(t, err)
	defer func() { _ = buf.Close() }()

	gold := "Gold"
	recs := []spillRec{
		{ID: "TXN000001", Amount: 100.25, Count: 2, Tier: &gold},
		{ID: "TXN000002", Amount: 50, Count: 1},
		{ID: "TXN000003", Amount: 75.5, Count: 9, Tier: &gold},
	}
	for i := range recs {
		require.NoError(t, buf.Append(&recs[i]))
	}
	assert.Equal(t, int64(3), buf.Rows())

	r, err := buf.Reader()
	require.NoError(t, err)

	var got []spillRec
	for {
		var rec spillRec
		err := r.Next(&rec)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}

	require.Len(t, got, 3)
	assert.Equal(t, recs[0], got[0])
	assert.Equal(t, recs[1], got[1])
	assert.Equal(t, recs[2], got[2])
	assert.Nil(t, got[1].Tier, "nil pointer fields must stay nil")
}

func TestBufferAppendAfterSeal(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	buf, err := codec.NewBuffer(t.TempDir(), "spill-*.cbor")
	require.NoError(t, err)
	defer func() { _ = buf.Close() }()

	require.NoError(t, buf.Append(&spillRec{ID: "a"}))
	_, err = buf.Reader()
	require.NoError(t, err)

	err = buf.Append(&spillRec{ID: "b"})
	assert.ErrorIs(t, err, ErrBufferSealed)
}

func TestBufferCloseRemovesFile(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	buf, err := codec.NewBuffer(t.TempDir(), "spill-*.cbor")
	require.NoError(t, err)
	path := buf.FilePath()

	require.NoError(t, buf.Append(&spillRec{ID: "a"}))
	require.NoError(t, buf.Close())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "backing file should be gone")

	assert.ErrorIs(t, buf.Append(&spillRec{ID: "b"}), ErrBufferClosed)
	require.NoError(t, buf.Close(), "double close is fine")
}

func TestBufferEmptyReadsEOF(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	buf, err := codec.NewBuffer(t.TempDir(), "spill-*.cbor")
	require.NoError(t, err)
	defer func() { _ = buf.Close() }()

	r, err := buf.Reader()
	require.NoError(t, err)

	var rec spillRec
	assert.Equal(t, io.EOF, r.Next(&rec))
}

func TestBufferManyRows(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	buf, err := codec.NewBuffer(t.TempDir(), "spill-*.cbor")
	require.NoError(t, err)
	defer func() { _ = buf.Close() }()

	const n = 10000
	for i := range n {
		require.NoError(t, buf.Append(&spillRec{ID: "x", Count: int64(i)}))
	}

	r, err := buf.Reader()
	require.NoError(t, err)

	var count int64
	for {
		var rec spillRec
		err := r.Next(&rec)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, count, rec.Count, "insertion order must hold")
		count++
	}
	assert.Equal(t, int64(n), count)
}
