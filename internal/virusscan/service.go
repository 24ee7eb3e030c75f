// internal/virusscan/service.go
package virusscan

import (
	"bytes"
	"context"
	"time"

	"taskhub/pkg/logger"
)

type ScanResult struct {
	Clean     bool      `json:"clean"`
	Threats   []string  `json:"threats,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
	ScanTime  int64     `json:"scan_time_ms"`
	Engine    string    `json:"engine"`
}

type signature struct {
	name   string
	prefix bool
	marker []byte
}

// Signatures cover the EICAR test file and executables disguised as
// documents. KYC uploads are only ever images or PDFs.
var signatures = []signature{
	{name: "EICAR-Test-File", marker: []byte(`X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`)},
	{name: "Executable.PE", prefix: true, marker: []byte("MZ")},
	{name: "Executable.ELF", prefix: true, marker: []byte("\x7fELF")},
	{name: "Executable.MachO", prefix: true, marker: []byte("\xcf\xfa\xed\xfe")},
	{name: "PDF.JavaScript", marker: []byte("/JavaScript")},
	{name: "PDF.Launch", marker: []byte("/Launch")},
}

// SignatureScanner matches uploads against a fixed signature list.
type SignatureScanner struct {
	logger logger.Logger
	now    func() time.Time
}

func NewSignatureScanner(log logger.Logger) *SignatureScanner {
	return &SignatureScanner{logger: log, now: time.Now}
}

func (s *SignatureScanner) ScanBuffer(ctx context.Context, data []byte) (*ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := s.now()

	var threats []string
	for _, sig := range signatures {
		var hit bool
		if sig.prefix {
			hit = bytes.HasPrefix(data, sig.marker)
		} else {
			hit = bytes.Contains(data, sig.marker)
		}
		if hit {
			threats = append(threats, sig.name)
		}
	}

	result := &ScanResult{
		Clean:     len(threats) == 0,
		Threats:   threats,
		ScannedAt: start.UTC(),
		ScanTime:  s.now().Sub(start).Milliseconds(),
		Engine:    "signature",
	}
	if !result.Clean {
		s.logger.Warn("File quarantined", map[string]interface{}{
			"threats": threats,
			"size":    len(data),
		})
	}
	return result, nil
}
