package dcm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Default metadata values used when the caller supplies none.
const (
	defaultPatientName   = "DefaultPatient"
	defaultPatientID     = "DefaultPatientID"
	defaultSeriesDescrip = "Series generated by dicomvol"
	defaultInstanceNum   = 1
)

// UID roots for the three identifier namespaces. Study, series and instance
// UIDs are drawn from distinct roots so that identifiers from different
// namespaces can never collide.
const (
	studyUIDRoot    = "1.2.826.0.1.3680043.9.7937.1"
	seriesUIDRoot   = "1.2.826.0.1.3680043.9.7937.2"
	instanceUIDRoot = "1.2.826.0.1.3680043.9.7937.3"
)

// maxUIDLen is the DICOM limit on UID length.
const maxUIDLen = 64

// Meta holds the DICOM metadata attached to a written series. Either supplied
// by the caller, in which case it is copied verbatim, or synthesized fresh per
// write call. During a directory write the instance UID and instance number
// are regenerated per slice; all other fields are held constant.
type Meta struct {
	PatientName    string
	PatientID      string
	StudyUID       string
	SeriesUID      string
	SeriesDescrip  string
	InstanceUID    string
	InstanceNumber int
}

// UIDGenerator synthesizes unique DICOM identifiers under per-namespace
// roots. Each generated UID is the namespace root followed by the decimal
// encoding of a fresh random UUID, truncated to the DICOM length limit.
type UIDGenerator struct {
	studyRoot    string
	seriesRoot   string
	instanceRoot string
}

// NewUIDGenerator returns a generator using the default namespace roots.
func NewUIDGenerator() *UIDGenerator {
	return &UIDGenerator{
		studyRoot:    studyUIDRoot,
		seriesRoot:   seriesUIDRoot,
		instanceRoot: instanceUIDRoot,
	}
}

// generate builds one UID under the given root.
func (g *UIDGenerator) generate(root string) string {
	id := uuid.New()
	n := new(big.Int).SetBytes(id[:])
	uid := root + "." + n.String()
	if len(uid) > maxUIDLen {
		uid = uid[:maxUIDLen]
	}
	return strings.TrimSuffix(uid, ".")
}

// StudyUID returns a fresh study identifier.
func (g *UIDGenerator) StudyUID() string { return g.generate(g.studyRoot) }

// SeriesUID returns a fresh series identifier.
func (g *UIDGenerator) SeriesUID() string { return g.generate(g.seriesRoot) }

// InstanceUID returns a fresh SOP instance identifier.
func (g *UIDGenerator) InstanceUID() string { return g.generate(g.instanceRoot) }

// defaultMeta returns a fully populated metadata record with fixed default
// fields and freshly generated identifiers.
func defaultMeta(gen *UIDGenerator) *Meta {
	return &Meta{
		PatientName:    defaultPatientName,
		PatientID:      defaultPatientID,
		StudyUID:       gen.StudyUID(),
		SeriesUID:      gen.SeriesUID(),
		SeriesDescrip:  defaultSeriesDescrip,
		InstanceUID:    gen.InstanceUID(),
		InstanceNumber: defaultInstanceNum,
	}
}

// resolveMeta returns a copy of the caller-supplied metadata if present,
// otherwise the defaults.
func resolveMeta(meta *Meta, gen *UIDGenerator) *Meta {
	if meta == nil {
		return defaultMeta(gen)
	}
	cp := *meta
	return &cp
}

// validate checks the fields a write operation depends on.
func (m *Meta) validate() error {
	if m.InstanceNumber < 1 {
		return fmt.Errorf("instance number must be positive, got %d", m.InstanceNumber)
	}
	return nil
}
