package numutil_test

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/bintheory/internal/numutil"
)

func TestClampIntToInt32(t *testing.T) {
	require.Equal(t, int32(0), numutil.ClampIntToInt32(0))
	require.Equal(t, int32(-123), numutil.ClampIntToInt32(-123))
	require.Equal(t, int32(math.MaxInt32), numutil.ClampIntToInt32(math.MaxInt32))

	if strconv.IntSize == 64 {
		require.Equal(t, int32(math.MaxInt32), numutil.ClampIntToInt32(int(int64(math.MaxInt32)+1)))
		require.Equal(t, int32(math.MinInt32), numutil.ClampIntToInt32(int(int64(math.MinInt32)-1)))
	}
}

func TestClampUint64ToInt32(t *testing.T) {
	require.Equal(t, int32(0), numutil.ClampUint64ToInt32(0))
	require.Equal(t, int32(25), numutil.ClampUint64ToInt32(25))
	require.Equal(t, int32(math.MaxInt32), numutil.ClampUint64ToInt32(math.MaxInt32))
	require.Equal(t, int32(math.MaxInt32), numutil.ClampUint64ToInt32(math.MaxUint64))
}
