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
	"fmt"
	"reflect"
	"time"
)

// SwapContext carries the session facts swap matching can discriminate on.
type SwapContext struct {
	// Format is the output format of the running session.
	Format Format
	// MediaType is the media type produced by the running session.
	MediaType string
}

// ============================================================================
// Swaps
// ============================================================================

// Swap rewrites values of one type into a surrogate type before emission.
// Application is single-hop: the surrogate is classified and emitted as-is,
// never swapped again.
type Swap struct {
	// AppliesTo is the source type. An interface matches every implementor.
	AppliesTo reflect.Type
	// Target is the surrogate type produced by the forward function.
	Target reflect.Type
	// WriteOnly swaps declare no inverse and serve emission only.
	WriteOnly bool

	forward    reflect.Value
	backward   reflect.Value
	score      func(SwapContext) int
	mediaTypes []string
}

// SwapOption adjusts a swap under construction.
type SwapOption func(*Swap)

// WithUnswap supplies the inverse function, func(D) S or func(D) (S, error).
func WithUnswap(fn any) SwapOption {
	return func(s *Swap) { s.backward = reflect.ValueOf(fn) }
}

// WithSwapMediaTypes limits the swap to sessions producing one of the given
// media types. The swap scores 2 on a matching session and 0 elsewhere.
func WithSwapMediaTypes(mediaTypes ...string) SwapOption {
	return func(s *Swap) { s.mediaTypes = mediaTypes }
}

// WithSwapScore replaces the built-in match scoring.
func WithSwapScore(score func(SwapContext) int) SwapOption {
	return func(s *Swap) { s.score = score }
}

// WithWriteOnly marks the swap as emission-only, allowing registration
// without an inverse.
func WithWriteOnly() SwapOption {
	return func(s *Swap) { s.WriteOnly = true }
}

// NewSwap builds a swap from a forward function of the form func(S) D or
// func(S) (D, error). A swap constructed without WithUnswap must be marked
// write-only.
func NewSwap(forward any, opts ...SwapOption) (*Swap, error) {
	fnVal := reflect.ValueOf(forward)
	if !fnVal.IsValid() || fnVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: forward is not a function", ErrInvalidSwapFunc)
	}
	fnType := fnVal.Type()
	if fnType.NumIn() != 1 || fnType.NumOut() == 0 || fnType.NumOut() > 2 {
		return nil, fmt.Errorf("%w: want func(S) D or func(S) (D, error), got %s", ErrInvalidSwapFunc, fnType)
	}
	if fnType.NumOut() == 2 && fnType.Out(1) != errorType {
		return nil, fmt.Errorf("%w: second result must be error, got %s", ErrInvalidSwapFunc, fnType)
	}

	sw := &Swap{
		AppliesTo: fnType.In(0),
		Target:    fnType.Out(0),
		forward:   fnVal,
	}
	for _, opt := range opts {
		opt(sw)
	}

	if !sw.backward.IsValid() {
		if !sw.WriteOnly {
			return nil, fmt.Errorf("%w: swap %s has no unswap", ErrInvalidSwapFunc, sw)
		}
		return sw, nil
	}
	bt := sw.backward.Type()
	if bt.Kind() != reflect.Func || bt.NumIn() != 1 || bt.NumOut() == 0 || bt.NumOut() > 2 {
		return nil, fmt.Errorf("%w: want unswap func(D) S or func(D) (S, error), got %s", ErrInvalidSwapFunc, bt)
	}
	if bt.NumOut() == 2 && bt.Out(1) != errorType {
		return nil, fmt.Errorf("%w: unswap second result must be error, got %s", ErrInvalidSwapFunc, bt)
	}
	if !sw.Target.AssignableTo(bt.In(0)) || !bt.Out(0).AssignableTo(sw.AppliesTo) {
		return nil, fmt.Errorf("%w: unswap %s does not invert %s", ErrInvalidSwapFunc, bt, sw)
	}
	return sw, nil
}

func (s *Swap) String() string {
	return fmt.Sprintf("%s->%s", s.AppliesTo, s.Target)
}

// applicable reports whether the swap can rewrite values of type t.
func (s *Swap) applicable(t reflect.Type) bool {
	if t == s.AppliesTo {
		return true
	}
	return s.AppliesTo.Kind() == reflect.Interface && t.Implements(s.AppliesTo)
}

// matchScore ranks the swap for a session. Zero removes the swap from
// consideration.
func (s *Swap) matchScore(ctx SwapContext) int {
	if s.score != nil {
		return s.score(ctx)
	}
	if len(s.mediaTypes) == 0 {
		return 1
	}
	for _, mt := range s.mediaTypes {
		if mt == ctx.MediaType {
			return 2
		}
	}
	return 0
}

// apply runs the forward function on v.
func (s *Swap) apply(v reflect.Value) (reflect.Value, error) {
	out := s.forward.Call([]reflect.Value{v})
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, fmt.Errorf("loom: swap %s: %w", s, out[1].Interface().(error))
	}
	return out[0], nil
}

// Invert runs the inverse function on a surrogate value. Write-only swaps
// return ErrWriteOnlySwap.
func (s *Swap) Invert(v reflect.Value) (reflect.Value, error) {
	if !s.backward.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrWriteOnlySwap, s)
	}
	out := s.backward.Call([]reflect.Value{v})
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, fmt.Errorf("loom: unswap %s: %w", s, out[1].Interface().(error))
	}
	return out[0], nil
}

// bestSwap picks the swap with the strictly highest score for the context.
// Zero scores are excluded; ties keep the first swap in consultation order,
// which runs newest registration first.
func bestSwap(swaps []*Swap, ctx SwapContext) *Swap {
	var best *Swap
	bestScore := 0
	for _, sw := range swaps {
		if sc := sw.matchScore(ctx); sc > bestScore {
			best, bestScore = sw, sc
		}
	}
	return best
}

// defaultSwaps returns the built-in swaps: durations render as their string
// form, and values reaching the emitter as bare error or reflect.Type
// implementations render as message text.
func defaultSwaps() []*Swap {
	duration, _ := NewSwap(
		func(d time.Duration) string { return d.String() },
		WithUnswap(time.ParseDuration),
	)
	errText, _ := NewSwap(
		func(err error) string { return err.Error() },
		WithWriteOnly(),
	)
	typeText, _ := NewSwap(
		func(t reflect.Type) string { return t.String() },
		WithWriteOnly(),
	)
	return []*Swap{duration, errText, typeText}
}
