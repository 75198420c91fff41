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
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackSerializer renders values as MessagePack. Values are generalized
// first, so swaps, ignore rules and type discriminators apply the same way
// they do for the text formats.
type MsgpackSerializer struct{}

func (MsgpackSerializer) Format() Format { return FormatMsgpack }

func (MsgpackSerializer) ContentType() string { return "application/msgpack" }

func (MsgpackSerializer) Serialize(l *Loom, v interface{}) ([]byte, error) {
	tree, err := l.generalizeWith(msgpackContext(), v)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(tree)
}

func (MsgpackSerializer) SerializeTo(l *Loom, out io.Writer, v interface{}) error {
	tree, err := l.generalizeWith(msgpackContext(), v)
	if err != nil {
		return err
	}
	return msgpack.NewEncoder(out).Encode(tree)
}

func msgpackContext() SwapContext {
	return SwapContext{Format: FormatMsgpack, MediaType: "application/msgpack"}
}
