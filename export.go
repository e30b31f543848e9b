package kpisight

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// exportNonceSize is the nonce size for AES-GCM
	exportNonceSize = 12
	// exportSaltSize is the salt size for key derivation
	exportSaltSize = 32
	// exportKeySize is the AES-256 key size
	exportKeySize = 32
	// exportPBKDF2Iterations is the number of iterations for key derivation
	exportPBKDF2Iterations = 100000

	exportVersion         = 1
	exportFlagCompressed  = 1 << 0
	exportFlagEncrypted   = 1 << 1
	exportHeaderSize      = 4 + 1 + 1
)

// exportMagic identifies an exported report payload.
var exportMagic = [4]byte{'K', 'P', 'S', 'R'}

// ExporterConfig configures report export.
type ExporterConfig struct {
	// Compress enables snappy compression of the JSON payload.
	Compress bool

	// Password enables AES-256-GCM encryption with a PBKDF2-derived key.
	// Empty disables encryption.
	Password string
}

// ReportExporter serializes compacted reports for handoff to downstream
// consumers. The payload is JSON, optionally snappy-compressed, optionally
// encrypted; a small header records which transforms apply so Import can
// reverse them.
type ReportExporter struct {
	config ExporterConfig
}

// NewReportExporter creates an exporter.
func NewReportExporter(config ExporterConfig) *ReportExporter {
	return &ReportExporter{config: config}
}

// Export serializes a report. Identical reports and configuration produce
// identical output except for the random salt and nonce of encryption.
func (e *ReportExporter) Export(report *CompactReport) ([]byte, error) {
	if report == nil {
		return nil, errors.New("nil report")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	var flags byte
	if e.config.Compress {
		payload = snappy.Encode(nil, payload)
		flags |= exportFlagCompressed
	}

	out := make([]byte, exportHeaderSize, exportHeaderSize+len(payload))
	copy(out[0:4], exportMagic[:])
	out[4] = exportVersion

	if e.config.Password != "" {
		flags |= exportFlagEncrypted
		out[5] = flags

		salt := make([]byte, exportSaltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
		gcm, err := exportAEAD(e.config.Password, salt)
		if err != nil {
			return nil, err
		}

		nonce := make([]byte, exportNonceSize)
		if _, err := rand.Read(nonce); err != nil {
			return nil, err
		}

		out = append(out, salt...)
		out = append(out, gcm.Seal(nonce, nonce, payload, nil)...)
		return out, nil
	}

	out[5] = flags
	return append(out, payload...), nil
}

// Import reverses Export. The password must match the one used at export
// time for encrypted payloads and is ignored otherwise.
func Import(data []byte, password string) (*CompactReport, error) {
	if len(data) < exportHeaderSize {
		return nil, errors.New("export payload too short")
	}
	if data[0] != exportMagic[0] || data[1] != exportMagic[1] ||
		data[2] != exportMagic[2] || data[3] != exportMagic[3] {
		return nil, errors.New("invalid export magic")
	}
	if data[4] != exportVersion {
		return nil, fmt.Errorf("unsupported export version %d", data[4])
	}

	flags := data[5]
	payload := data[exportHeaderSize:]

	if flags&exportFlagEncrypted != 0 {
		if password == "" {
			return nil, errors.New("payload is encrypted but no password provided")
		}
		if len(payload) < exportSaltSize+exportNonceSize {
			return nil, errors.New("encrypted payload too short")
		}
		salt := payload[:exportSaltSize]
		gcm, err := exportAEAD(password, salt)
		if err != nil {
			return nil, err
		}

		rest := payload[exportSaltSize:]
		nonce := rest[:exportNonceSize]
		plaintext, err := gcm.Open(nil, nonce, rest[exportNonceSize:], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt report: %w", err)
		}
		payload = plaintext
	}

	if flags&exportFlagCompressed != 0 {
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress report: %w", err)
		}
		payload = decoded
	}

	var report CompactReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// exportAEAD derives the AES-256-GCM cipher for a password and salt.
func exportAEAD(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, exportPBKDF2Iterations, exportKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
