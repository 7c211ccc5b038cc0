/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package client

import (
	"crypto/tls"
	"time"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/connect"
	"github.com/abhivijay96/voltdb-client-go/internal/dispatch"
	"github.com/abhivijay96/voltdb-client-go/internal/duration"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
	libval "github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Notifications are the optional fire-and-forget callbacks an application
// can register. Panics inside a callback are caught and logged; a
// notification never propagates into the pipeline that fired it.
type Notifications struct {
	// ConnectionUp fires after a connection registered successfully.
	ConnectionUp func(target string, hostID int64)

	// ConnectionDown fires after a connection finished tearing down.
	ConnectionDown func(target string, hostID int64)

	// ConnectionFailure fires when a background connect attempt fails.
	ConnectionFailure func(target string, err error)

	// LateResponse fires for a response whose call already timed out.
	LateResponse func(handle int64, connection string)

	// RequestBackpressure fires on every warning/resume transition; values
	// strictly alternate starting with true.
	RequestBackpressure func(on bool)
}

// ParamCodec serializes and deserializes the opaque parameter block; the
// default codec covers Go's basic scalar, string and byte-slice types.
type ParamCodec interface {
	codec.ParamEncoder
	codec.ParamDecoder
}

// Config is the whole public configuration surface. The zero value is not
// usable; start from DefaultConfig and override.
type Config struct {
	// Username and Password feed the (externally defined) authentication
	// handshake.
	Username string `mapstructure:"username" json:"username" yaml:"username"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`

	// CleartextPassword passes the password as given instead of
	// pre-hashing it with HashScheme.
	CleartextPassword bool `mapstructure:"cleartext_password" json:"cleartext_password" yaml:"cleartext_password"`

	// HashScheme selects the password digest for the handshake.
	HashScheme string `mapstructure:"hash_scheme" json:"hash_scheme" yaml:"hash_scheme" validate:"omitempty,oneof=sha1 sha256"`

	// EnableTLS wraps each connection in TLS using TLSConfig.
	EnableTLS bool        `mapstructure:"enable_tls" json:"enable_tls" yaml:"enable_tls"`
	TLSConfig *tls.Config `mapstructure:"-" json:"-" yaml:"-"`

	// TxnPerSecRateLimit paces sends globally; zero means unlimited.
	TxnPerSecRateLimit int `mapstructure:"txn_per_sec_rate_limit" json:"txn_per_sec_rate_limit" yaml:"txn_per_sec_rate_limit" validate:"min=0"`

	// RequestPriority is the default call priority (1 highest .. 8
	// lowest); out-of-range values clamp to 8.
	RequestPriority uint8 `mapstructure:"request_priority" json:"request_priority" yaml:"request_priority"`

	// ConnectionSetupTimeout bounds dial plus handshake.
	ConnectionSetupTimeout duration.Duration `mapstructure:"connection_setup_timeout" json:"connection_setup_timeout" yaml:"connection_setup_timeout"`

	// ProcedureCallTimeout is the default whole-call budget.
	ProcedureCallTimeout duration.Duration `mapstructure:"procedure_call_timeout" json:"procedure_call_timeout" yaml:"procedure_call_timeout"`

	// ConnectionResponseTimeout is the keepalive silence threshold.
	ConnectionResponseTimeout duration.Duration `mapstructure:"connection_response_timeout" json:"connection_response_timeout" yaml:"connection_response_timeout"`

	// OutstandingTxnLimit sizes the global send-permit semaphore.
	OutstandingTxnLimit int `mapstructure:"outstanding_txn_limit" json:"outstanding_txn_limit" yaml:"outstanding_txn_limit" validate:"min=0"`

	// RequestHardLimit, RequestWarningLevel and RequestResumeLevel drive
	// admission and the request-backpressure transitions.
	RequestHardLimit    int `mapstructure:"request_hard_limit" json:"request_hard_limit" yaml:"request_hard_limit" validate:"min=0"`
	RequestWarningLevel int `mapstructure:"request_warning_level" json:"request_warning_level" yaml:"request_warning_level" validate:"min=0"`
	RequestResumeLevel  int `mapstructure:"request_resume_level" json:"request_resume_level" yaml:"request_resume_level" validate:"min=0"`

	// NetworkBackpressureLevel is the outbound-queue depth that raises the
	// per-connection network-backpressure signal.
	NetworkBackpressureLevel int `mapstructure:"network_backpressure_level" json:"network_backpressure_level" yaml:"network_backpressure_level" validate:"min=0"`

	// ReconnectDelay delays the first-connection recovery attempt;
	// ReconnectRetryDelay paces every retry after a failed attempt.
	ReconnectDelay      duration.Duration `mapstructure:"reconnect_delay" json:"reconnect_delay" yaml:"reconnect_delay"`
	ReconnectRetryDelay duration.Duration `mapstructure:"reconnect_retry_delay" json:"reconnect_retry_delay" yaml:"reconnect_retry_delay"`

	// DisableConnectionMgmt turns off autonomous new-node dialing and the
	// recovery loop.
	DisableConnectionMgmt bool `mapstructure:"disable_connection_mgmt" json:"disable_connection_mgmt" yaml:"disable_connection_mgmt"`

	// ResponseThreadCount sizes the response-completion worker pool.
	ResponseThreadCount int `mapstructure:"response_thread_count" json:"response_thread_count" yaml:"response_thread_count" validate:"min=0"`

	// Logger supplies the structured log sink; nil falls back to the
	// logrus standard logger.
	Logger *logrus.Logger `mapstructure:"-" json:"-" yaml:"-"`

	// Notify carries the optional notification callbacks.
	Notify Notifications `mapstructure:"-" json:"-" yaml:"-"`

	// ParamCodec overrides the default parameter codec.
	ParamCodec ParamCodec `mapstructure:"-" json:"-" yaml:"-"`

	// Handshake runs the externally defined auth handshake after dial.
	Handshake connect.HandshakeFunc `mapstructure:"-" json:"-" yaml:"-"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		HashScheme:                "sha256",
		RequestPriority:           codec.MaxPriority,
		ConnectionSetupTimeout:    duration.Seconds(10),
		ProcedureCallTimeout:      duration.Minutes(2),
		ConnectionResponseTimeout: duration.Minutes(2),
		OutstandingTxnLimit:       100,
		RequestHardLimit:          registry.DefaultHardLimit,
		RequestWarningLevel:       registry.DefaultWarningLevel,
		RequestResumeLevel:        registry.DefaultResumeLevel,
		NetworkBackpressureLevel:  connect.DefaultBackpressureLevel,
		ReconnectDelay:            duration.ParseDuration(time.Second),
		ReconnectRetryDelay:       duration.Seconds(10),
		ResponseThreadCount:       dispatch.DefaultWorkers,
	}
}

// Validate checks the struct tags only; the ordering of the hard, warning
// and resume limits against each other is not checked here.
func (c Config) Validate() error {
	if err := libval.New().Struct(c); err != nil {
		return err
	}
	return nil
}

// FromViper decodes a Config out of v, layered over the defaults.
// Durations accept human-readable strings ("1200ms", "2m", "1d12h").
func FromViper(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)))
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// WithProcedureCallTimeout sets the default call budget from a
// (value, unit) pair.
func (c *Config) WithProcedureCallTimeout(value int64, unit time.Duration) *Config {
	c.ProcedureCallTimeout = duration.ParseDuration(time.Duration(value) * unit)
	return c
}

// WithConnectionResponseTimeout sets the keepalive threshold from a
// (value, unit) pair.
func (c *Config) WithConnectionResponseTimeout(value int64, unit time.Duration) *Config {
	c.ConnectionResponseTimeout = duration.ParseDuration(time.Duration(value) * unit)
	return c
}

// WithConnectionSetupTimeout sets the dial budget from a (value, unit)
// pair.
func (c *Config) WithConnectionSetupTimeout(value int64, unit time.Duration) *Config {
	c.ConnectionSetupTimeout = duration.ParseDuration(time.Duration(value) * unit)
	return c
}
