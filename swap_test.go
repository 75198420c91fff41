// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package loom

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type opError struct{ msg string }

func (e *opError) Error() string { return e.msg }

// TestNewSwapValidation rejects forward and inverse functions with the wrong
// shape.
func TestNewSwapValidation(t *testing.T) {
	t.Run("NotAFunction", func(t *testing.T) {
		_, err := NewSwap(42)
		require.ErrorIs(t, err, ErrInvalidSwapFunc)
		require.Contains(t, err.Error(), "forward is not a function")
	})

	t.Run("WrongArity", func(t *testing.T) {
		_, err := NewSwap(func(a, b int) int { return a + b })
		require.ErrorIs(t, err, ErrInvalidSwapFunc)
		require.Contains(t, err.Error(), "want func(S) D")
	})

	t.Run("SecondResultNotError", func(t *testing.T) {
		_, err := NewSwap(func(int) (string, string) { return "", "" })
		require.ErrorIs(t, err, ErrInvalidSwapFunc)
		require.Contains(t, err.Error(), "second result must be error")
	})

	t.Run("MissingUnswap", func(t *testing.T) {
		_, err := NewSwap(func(int) string { return "" })
		require.ErrorIs(t, err, ErrInvalidSwapFunc)
		require.Contains(t, err.Error(), "has no unswap")
	})

	t.Run("UnswapNotAFunction", func(t *testing.T) {
		_, err := NewSwap(func(int) string { return "" }, WithUnswap(3))
		require.ErrorIs(t, err, ErrInvalidSwapFunc)
		require.Contains(t, err.Error(), "want unswap func(D) S")
	})

	t.Run("UnswapDoesNotInvert", func(t *testing.T) {
		_, err := NewSwap(
			func(int) string { return "" },
			WithUnswap(func(string) bool { return false }),
		)
		require.ErrorIs(t, err, ErrInvalidSwapFunc)
		require.Contains(t, err.Error(), "does not invert")
	})

	t.Run("ErrorReturningForms", func(t *testing.T) {
		_, err := NewSwap(
			func(int) (string, error) { return "", nil },
			WithUnswap(func(string) (int, error) { return 0, nil }),
		)
		require.NoError(t, err)
	})
}

// TestDurationSwap renders durations through the built-in swap and inverts
// them through the registered unswap.
func TestDurationSwap(t *testing.T) {
	l := New()
	out, err := l.Serialize(90 * time.Second)
	require.NoError(t, err)
	require.Equal(t, `<string>1m30s</string>`, string(out))

	sw, err := NewSwap(
		func(d time.Duration) string { return d.String() },
		WithUnswap(time.ParseDuration),
	)
	require.NoError(t, err)
	back, err := sw.Invert(reflect.ValueOf("1m30s"))
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, back.Interface())

	t.Run("WriteOnlyHasNoInverse", func(t *testing.T) {
		wo, err := NewSwap(func(d time.Duration) string { return d.String() }, WithWriteOnly())
		require.NoError(t, err)
		_, err = wo.Invert(reflect.ValueOf("1s"))
		require.ErrorIs(t, err, ErrWriteOnlySwap)
	})
}

// TestSwapPrecedence gives later registrations priority over earlier ones and
// over the built-ins.
func TestSwapPrecedence(t *testing.T) {
	type mood int

	t.Run("NewestRegistrationWins", func(t *testing.T) {
		l := New()
		require.NoError(t, l.RegisterSwap(func(m mood) string { return "old" }, WithWriteOnly()))
		require.NoError(t, l.RegisterSwap(func(m mood) string { return "new" }, WithWriteOnly()))
		out, err := l.Serialize(mood(0))
		require.NoError(t, err)
		require.Equal(t, `<string>new</string>`, string(out))
	})

	t.Run("UserShadowsBuiltIn", func(t *testing.T) {
		l := New()
		require.NoError(t, l.RegisterSwap(func(d time.Duration) string { return "forever" }, WithWriteOnly()))
		out, err := l.Serialize(time.Second)
		require.NoError(t, err)
		require.Equal(t, `<string>forever</string>`, string(out))
	})
}

// TestSwapMediaTypeScoring picks the surrogate by session media type: the
// targeted swap outranks the general one only on matching sessions.
func TestSwapMediaTypeScoring(t *testing.T) {
	type temperature float64

	l := New()
	require.NoError(t, l.RegisterSwap(func(temperature) string { return "cold" }, WithWriteOnly()))
	require.NoError(t, l.RegisterSwap(
		func(c temperature) float64 { return float64(c) },
		WithWriteOnly(),
		WithSwapMediaTypes("application/json"),
	))

	out, err := l.Serialize(temperature(99))
	require.NoError(t, err)
	require.Equal(t, `<string>cold</string>`, string(out))

	out, err = l.SerializeAs(FormatJSON, temperature(99))
	require.NoError(t, err)
	require.Equal(t, "99", strings.TrimSpace(string(out)))
}

// TestSwapScoreOverride removes a swap from consideration when its score
// function returns zero.
func TestSwapScoreOverride(t *testing.T) {
	type mood int
	l := New()
	require.NoError(t, l.RegisterSwap(
		func(m mood) string { return "never" },
		WithWriteOnly(),
		WithSwapScore(func(SwapContext) int { return 0 }),
	))
	out, err := l.Serialize(mood(5))
	require.NoError(t, err)
	require.Equal(t, `<number>5</number>`, string(out))
}

// TestInterfaceSwap applies an interface-typed swap to every implementor,
// ahead of pointer unwrapping. The built-in error and reflect.Type swaps
// both ride on this.
func TestInterfaceSwap(t *testing.T) {
	l := New()

	type report struct{ Err error }
	out, err := l.Serialize(report{Err: &opError{msg: "boom"}})
	require.NoError(t, err)
	require.Equal(t, `<object><err>boom</err></object>`, string(out))

	out, err = l.Serialize(&opError{msg: "boom"})
	require.NoError(t, err)
	require.Equal(t, `<string>boom</string>`, string(out))

	out, err = l.Serialize(reflect.TypeOf(0))
	require.NoError(t, err)
	require.Equal(t, `<string>int</string>`, string(out))
}

// TestSwapForwardError propagates a failing forward function as a
// serialization error.
func TestSwapForwardError(t *testing.T) {
	type mood int
	l := New()
	require.NoError(t, l.RegisterSwap(
		func(m mood) (string, error) { return "", errors.New("nope") },
		WithWriteOnly(),
	))
	_, err := l.Serialize(mood(1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope")

	var serr *SerializeError
	require.ErrorAs(t, err, &serr)
}
