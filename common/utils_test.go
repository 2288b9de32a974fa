package common

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHexRoundTrip(t *testing.T) {
	b32 := RandBytes32()
	hexStr := ByteSliceToPureHexStr(b32[:])
	assert.Equal(t, b32, HexStrToBytes32(hexStr))
	assert.Equal(t, b32, HexStrToBytes32(Prepend0xPrefix(hexStr)))
}

func TestBigIntHexStr(t *testing.T) {
	v := big.NewInt(123456789)
	assert.Equal(t, v, HexStrToBigInt(BigIntToHexStr(v)))
	assert.Nil(t, HexStrToBigInt("zz"))
}

func TestIsPositive(t *testing.T) {
	assert.False(t, IsPositive(nil))
	assert.False(t, IsPositive(big.NewInt(0)))
	assert.False(t, IsPositive(big.NewInt(-5)))
	assert.True(t, IsPositive(big.NewInt(1)))
}

func TestEnsureSafeAddressHexString(t *testing.T) {
	assert.True(t, EnsureSafeAddressHexString("0xdeadbeef"))
	assert.True(t, EnsureSafeAddressHexString("DEADBEEF"))
	assert.False(t, EnsureSafeAddressHexString("0x"))
	assert.False(t, EnsureSafeAddressHexString("0xdead-beef"))
}
