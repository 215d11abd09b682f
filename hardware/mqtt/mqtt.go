// go-nrfradio
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nrfradio.
//
// go-nrfradio is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nrfradio is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nrfradio; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package mqtt uses an MQTT broker as the radio medium. Every channel is a
// topic; radios publish frames wrapped in an envelope carrying the address,
// group and data rate, and receivers discard envelopes they would not hear.
package mqtt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/ZaparooProject/go-nrfradio/internal/syncutil"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// Defaults for Options
const (
	DefaultRootTopic      = "nrfradio"
	DefaultTimeout        = 5 * time.Second
	DefaultEventQueueSize = 64
)

// Options configures the broker connection
type Options struct {
	Broker    string
	Username  string
	Password  string
	RootTopic string
	// ClientID identifies this radio; a random one is generated if empty
	ClientID string
	Timeout  time.Duration
}

func (o *Options) setDefaults() {
	if o.RootTopic == "" {
		o.RootTopic = DefaultRootTopic
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ClientID == "" {
		id := make([]byte, 4)
		_, _ = rand.Read(id)
		o.ClientID = fmt.Sprintf("nrfradio-%x", id)
	}
}

type event struct {
	deliver radio.DeliverFunc
	frame   []byte
}

// Hardware implements radio.Hardware on an MQTT broker
type Hardware struct {
	client   paho.Client
	deliver  radio.DeliverFunc
	events   chan event
	done     chan struct{}
	topic    string
	opts     Options
	wg       sync.WaitGroup
	settings radio.Settings
	dropped  uint64
	mu       syncutil.Mutex
	enabled  bool
	closed   bool
}

// New connects to the broker described by opts
func New(opts Options) (*Hardware, error) {
	opts.setDefaults()

	co := paho.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetUsername(opts.Username)
	co.SetPassword(opts.Password)
	co.SetClientID(opts.ClientID)
	co.SetOrderMatters(false)
	co.SetAutoReconnect(true)

	client := paho.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		return nil, radio.NewTimeoutError(radio.HardwareMQTT, "connect", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, radio.NewHardwareError(radio.HardwareMQTT, "connect", opts.Broker,
			fmt.Errorf("failed to connect MQTT: %w", err), radio.ErrorTypeTransient)
	}
	radio.Debugf("mqtt: connected to %s as %s", opts.Broker, opts.ClientID)
	return NewWithClient(client, opts), nil
}

// NewWithClient uses an already connected client
func NewWithClient(client paho.Client, opts Options) *Hardware {
	opts.setDefaults()
	h := &Hardware{
		client: client,
		opts:   opts,
		events: make(chan event, DefaultEventQueueSize),
		done:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.dispatch()
	return h
}

// ClientID returns the sender identity used in envelopes
func (h *Hardware) ClientID() string {
	return h.opts.ClientID
}

// Topic returns the topic for a channel
func (h *Hardware) Topic(channel uint8) string {
	return fmt.Sprintf("%s/ch/%d", h.opts.RootTopic, channel)
}

func (h *Hardware) wait(op string, token paho.Token) error {
	if !token.WaitTimeout(h.opts.Timeout) {
		return radio.NewTimeoutError(radio.HardwareMQTT, op, h.opts.Broker)
	}
	if err := token.Error(); err != nil {
		return radio.NewHardwareError(radio.HardwareMQTT, op, h.opts.Broker, err, radio.ErrorTypeTransient)
	}
	return nil
}

func (h *Hardware) subscribeLocked(channel uint8) error {
	topic := h.Topic(channel)
	if err := h.wait("subscribe", h.client.Subscribe(topic, 0, h.onMessage)); err != nil {
		return err
	}
	h.topic = topic
	radio.Debugf("mqtt: listening on %s", topic)
	return nil
}

func (h *Hardware) unsubscribeLocked() error {
	if h.topic == "" {
		return nil
	}
	topic := h.topic
	h.topic = ""
	return h.wait("unsubscribe", h.client.Unsubscribe(topic))
}

// Configure implements radio.Hardware. A channel change while enabled
// moves the subscription.
func (h *Hardware) Configure(s radio.Settings) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return radio.NewHardwareError(radio.HardwareMQTT, "Configure", h.opts.Broker,
			radio.ErrHardwareClosed, radio.ErrorTypePermanent)
	}

	if h.enabled && s.Channel != h.settings.Channel {
		if err := h.unsubscribeLocked(); err != nil {
			return err
		}
		if err := h.subscribeLocked(s.Channel); err != nil {
			return err
		}
	}
	h.settings = s
	return nil
}

// Enable implements radio.Hardware
func (h *Hardware) Enable(deliver radio.DeliverFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return radio.NewHardwareError(radio.HardwareMQTT, "Enable", h.opts.Broker,
			radio.ErrHardwareClosed, radio.ErrorTypePermanent)
	}

	if h.topic == "" {
		if err := h.subscribeLocked(h.settings.Channel); err != nil {
			return err
		}
	}
	h.deliver = deliver
	h.enabled = true
	return nil
}

// Disable implements radio.Hardware
func (h *Hardware) Disable() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = false
	h.deliver = nil
	if h.closed {
		return nil
	}
	return h.unsubscribeLocked()
}

// Transmit implements radio.Hardware. Publishing is QoS 0, like the air.
func (h *Hardware) Transmit(frame []byte) error {
	if len(frame) > radio.MaxTransmitSize {
		return radio.NewFrameTooLargeError(radio.HardwareMQTT, "Transmit", h.opts.Broker)
	}

	h.mu.Lock()
	s := h.settings
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return radio.NewHardwareError(radio.HardwareMQTT, "Transmit", h.opts.Broker,
			radio.ErrHardwareClosed, radio.ErrorTypePermanent)
	}

	env := Envelope{
		Sender:   h.opts.ClientID,
		Address:  s.Address,
		Group:    s.Group,
		DataRate: s.DataRate,
		Frame:    frame,
	}
	return h.wait("Transmit", h.client.Publish(h.Topic(s.Channel), 0, false, env.Marshal()))
}

// Type implements radio.Hardware
func (*Hardware) Type() radio.HardwareType {
	return radio.HardwareMQTT
}

// Dropped returns the number of envelopes lost to a full event queue
func (h *Hardware) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hardware) onMessage(_ paho.Client, msg paho.Message) {
	var env Envelope
	if err := env.Unmarshal(msg.Payload()); err != nil {
		radio.Debugf("mqtt: ignoring message on %s: %v", msg.Topic(), err)
		return
	}
	if env.Sender == h.opts.ClientID {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.enabled || msg.Topic() != h.topic || !env.matches(h.settings) {
		return
	}
	select {
	case h.events <- event{deliver: h.deliver, frame: env.Frame}:
	default:
		h.dropped++
	}
}

func (h *Hardware) dispatch() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case ev := <-h.events:
			ev.deliver(ev.frame)
		}
	}
}

// Close unsubscribes, disconnects and stops the dispatcher
func (h *Hardware) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	err := h.unsubscribeLocked()
	h.closed = true
	h.enabled = false
	h.mu.Unlock()

	close(h.done)
	h.wg.Wait()
	h.client.Disconnect(250)
	if err != nil && !errors.Is(err, radio.ErrHardwareTimeout) {
		return err
	}
	return nil
}
