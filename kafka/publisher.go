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

// Package kafka publishes partitioned chunks to a Kafka topic for
// processing.
package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/Shopify/sarama"
	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

// Publisher is a jobstore.Publisher sending each chunk as a JSON message to
// Topic, keyed by job id so that the chunks of a job share a partition.
type Publisher struct {
	Hosts []string
	Topic string

	producer sarama.SyncProducer
}

// NewPublisher returns a Publisher with default settings. Open must be
// called before use.
func NewPublisher() *Publisher {
	return &Publisher{
		Hosts: []string{"localhost:9092"},
		Topic: "dataio-chunks",
	}
}

// Open connects to the brokers in Hosts.
func (p *Publisher) Open() error {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Partitioner = sarama.NewHashPartitioner
	producer, err := sarama.NewSyncProducer(p.Hosts, config)
	if err != nil {
		return errors.Wrap(err, "getting new producer")
	}
	p.producer = producer
	return nil
}

// Publish implements jobstore.Publisher.
func (p *Publisher) Publish(ctx context.Context, chunk *dataio.Chunk) error {
	value, err := json.Marshal(chunk)
	if err != nil {
		return errors.Wrapf(err, "marshalling chunk %d/%d", chunk.JobID, chunk.ID)
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.Topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(chunk.JobID, 10)),
		Value: sarama.ByteEncoder(value),
	})
	return errors.Wrapf(err, "sending chunk %d/%d", chunk.JobID, chunk.ID)
}

// Close closes the producer.
func (p *Publisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return errors.Wrap(p.producer.Close(), "closing kafka producer")
}
