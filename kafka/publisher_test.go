// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

func TestPublish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	p := NewPublisher()
	p.producer = producer

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		chunk := &dataio.Chunk{}
		if err := json.Unmarshal(val, chunk); err != nil {
			return err
		}
		if chunk.JobID != 3 || chunk.ID != 1 || len(chunk.Items) != 1 || string(chunk.Items[0].Data) != "data" {
			return errors.Errorf("unexpected chunk %+v", chunk)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	chunk := &dataio.Chunk{
		JobID: 3, ID: 1,
		Items: []*dataio.ChunkItem{dataio.NewSuccessfulItem(0, []byte("data"), dataio.TypeString)},
		State: dataio.NewState(),
	}
	if err := p.Publish(context.Background(), chunk); err != nil {
		t.Fatalf("publishing: %v", err)
	}
	if err := p.Publish(context.Background(), chunk); errors.Cause(err) != sarama.ErrOutOfBrokers {
		t.Fatalf("expected out of brokers, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}
}

func TestCloseUnopened(t *testing.T) {
	if err := NewPublisher().Close(); err != nil {
		t.Fatalf("closing unopened publisher: %v", err)
	}
}
