package statement

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jpvalente/tally/internal/currency"
	"github.com/jpvalente/tally/internal/ledger"
)

// Stage is a step of the import wizard. Stages progress strictly forward
// with single-step back transitions; going back discards everything derived
// downstream of the target stage.
type Stage int

const (
	StageUpload Stage = iota
	StageParse
	StageMapping
	StageReview
	StageCommitted
)

func (s Stage) String() string {
	switch s {
	case StageUpload:
		return "upload"
	case StageParse:
		return "parse"
	case StageMapping:
		return "mapping"
	case StageReview:
		return "review"
	case StageCommitted:
		return "committed"
	}

	return "unknown"
}

// File is one uploaded statement staged in a session, with everything
// derived from it so far. Reparsing with a new config recomputes Columns and
// discards Candidates; other files are untouched.
type File struct {
	ID        string
	Name      string
	Contents  string
	AccountID uuid.UUID
	Config    ParseConfig

	Columns    []*Column
	Warnings   []string
	Err        error
	Candidates []Candidate
}

// Column returns the file's column with the given id, or nil.
func (f *File) Column(id string) *Column {
	return findColumn(f.Columns, id)
}

// Rows returns the number of data rows parsed from the file.
func (f *File) Rows() int {
	if len(f.Columns) == 0 {
		return 0
	}

	return len(f.Columns[0].Values)
}

// Session is the working state of one import wizard run. It owns its state
// exclusively; nothing touches the ledger until Commit, so abandoning a
// session at any stage is a complete cancellation.
type Session struct {
	AccountID uuid.UUID
	Stage     Stage
	Files     []*File
	Mapping   Mapping
	Transfers map[Key]Match

	nextID int
}

func NewSession(account uuid.UUID) *Session {
	return &Session{
		AccountID: account,
		Stage:     StageUpload,
		Transfers: make(map[Key]Match),
	}
}

// AddFile stages a file and parses it with an inferred config. Structural
// parse failures flag the file rather than dropping it, so the user can fix
// the config or remove it.
func (s *Session) AddFile(name, contents string) (*File, error) {
	if s.Stage > StageParse {
		return nil, fmt.Errorf("cannot add files at the %s stage", s.Stage)
	}

	s.nextID++

	f := &File{
		ID:        fmt.Sprintf("file-%d", s.nextID),
		Name:      name,
		Contents:  contents,
		AccountID: s.AccountID,
	}
	s.reparse(f)

	s.Files = append(s.Files, f)
	s.Stage = StageParse

	return f, nil
}

// RemoveFile drops a staged file. Removing the last file returns the session
// to the upload stage.
func (s *Session) RemoveFile(id string) {
	for i, f := range s.Files {
		if f.ID == id {
			s.Files = append(s.Files[:i], s.Files[i+1:]...)
			break
		}
	}

	if len(s.Files) == 0 && s.Stage == StageParse {
		s.Stage = StageUpload
	}
}

// Reparse applies a new parse config to one file and recomputes its columns.
// Only legal before mapping is confirmed.
func (s *Session) Reparse(id string, cfg ParseConfig) error {
	if s.Stage > StageParse {
		return fmt.Errorf("cannot reparse at the %s stage", s.Stage)
	}

	for _, f := range s.Files {
		if f.ID == id {
			f.Config = cfg
			s.reparse(f)

			return nil
		}
	}

	return fmt.Errorf("no staged file %q", id)
}

func (s *Session) reparse(f *File) {
	f.Columns = nil
	f.Warnings = nil
	f.Candidates = nil

	result, err := Parse(f.Contents, f.Config)

	f.Err = err
	if err != nil {
		return
	}

	f.Columns = result.Columns
	f.Warnings = result.Warnings
}

// ToMapping advances from parsing to column mapping, seeding the mapping
// with a guess from the first file's columns.
func (s *Session) ToMapping(defaultCurrency uuid.UUID) error {
	if s.Stage != StageParse {
		return fmt.Errorf("cannot map columns from the %s stage", s.Stage)
	}

	if err := ValidateParsed(s.Files); err != nil {
		return err
	}

	s.Mapping = NewMapping(defaultCurrency)
	s.Mapping.Guess(s.Files[0].Columns)
	s.Stage = StageMapping

	return nil
}

// BackToParse steps back from mapping, discarding the mapping and anything
// derived from it.
func (s *Session) BackToParse() {
	if s.Stage != StageMapping {
		return
	}

	s.Mapping = Mapping{}
	s.clearDerived()
	s.Stage = StageParse
}

// ToReview validates the mapping, materializes candidates for every file,
// and runs transfer detection against the batch and the existing ledger.
func (s *Session) ToReview(
	currencies []currency.Currency,
	existing []*ledger.Transaction,
	rates Rates,
	cfg DetectConfig,
) error {
	if s.Stage != StageMapping {
		return fmt.Errorf("cannot review from the %s stage", s.Stage)
	}

	if err := s.Mapping.Validate(s.Files, currencies); err != nil {
		return err
	}

	for _, f := range s.Files {
		f.Candidates = Materialize(f.Columns, s.Mapping, f.AccountID, currencies)
	}

	s.Transfers = DetectTransfers(s.Files, existing, rates, cfg)
	s.Stage = StageReview

	return nil
}

// BackToMapping steps back from review, discarding candidates and transfer
// annotations while keeping the mapping for adjustment.
func (s *Session) BackToMapping() {
	if s.Stage != StageReview {
		return
	}

	s.clearDerived()
	s.Stage = StageMapping
}

func (s *Session) clearDerived() {
	for _, f := range s.Files {
		f.Candidates = nil
	}

	s.Transfers = make(map[Key]Match)
}

// ToggleExclusion flips a candidate's exclusion. Re-including a row that was
// auto-excluded clears its diagnostic, on the user's judgment. Excluding a
// row that is one leg of a detected transfer drops the annotation from both
// legs, so the surviving row does not commit as half a transfer.
func (s *Session) ToggleExclusion(key Key) error {
	for _, f := range s.Files {
		if f.ID != key.FileID {
			continue
		}

		for i := range f.Candidates {
			if f.Candidates[i].Row == key.Row {
				f.Candidates[i].Excluded = !f.Candidates[i].Excluded
				if f.Candidates[i].Excluded {
					s.RejectTransfer(key)
				} else {
					f.Candidates[i].Reason = ""
				}

				return nil
			}
		}
	}

	return fmt.Errorf("no candidate at %s:%d", key.FileID, key.Row)
}

// RejectTransfer removes a transfer annotation. In-batch pairs are removed
// from both sides to keep annotations symmetric.
func (s *Session) RejectTransfer(key Key) {
	match, ok := s.Transfers[key]
	if !ok {
		return
	}

	delete(s.Transfers, key)

	if match.InBatch() {
		delete(s.Transfers, match.Counterpart)
	}
}

// Committed marks the session terminal and clears all working state. The
// caller invokes this exactly once, after every file committed successfully.
func (s *Session) Committed() {
	s.Stage = StageCommitted
	s.Files = nil
	s.Mapping = Mapping{}
	s.Transfers = make(map[Key]Match)
}
