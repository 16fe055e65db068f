package dna

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
)

var (
	// ErrNoActiveDna is returned when a mutation is requested for a target
	// without an active DNA snapshot.
	ErrNoActiveDna = errors.New("no active DNA snapshot for target")
	// ErrUnknownGene is returned for a proposal naming an unknown gene.
	ErrUnknownGene = errors.New("unknown gene")
)

// Diff summarizes the key-level changes a mutation applied to its gene.
type Diff struct {
	Added    []string `json:"added,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Modified []string `json:"modified,omitempty"`
}

// MutationResult is the outcome of an applied mutation.
type MutationResult struct {
	Snapshot   *models.DnaSnapshot `json:"snapshot"`
	SnapshotID string              `json:"snapshot_id"`
	Diff       Diff                `json:"diff"`
}

// Mutator produces new DNA snapshots from mutation proposals. Every
// accepted mutation links its snapshot to the previously active one,
// keeping the lineage an append-only ancestry tree.
type Mutator struct {
	dnaStorage   interfaces.DnaStorage
	eventStorage interfaces.EventStorage
	logger       arbor.ILogger
}

// NewMutator creates a new Mutator instance
func NewMutator(dnaStorage interfaces.DnaStorage, eventStorage interfaces.EventStorage, logger arbor.ILogger) *Mutator {
	return &Mutator{
		dnaStorage:   dnaStorage,
		eventStorage: eventStorage,
		logger:       logger,
	}
}

// CreateInitial creates the version 1.0.0 snapshot for a target from the
// default profile and emits a birth learning event.
func (m *Mutator) CreateInitial(ctx context.Context, targetID string) (*models.DnaSnapshot, error) {
	profile := DefaultProfile()
	dnaJSON, err := models.EncodeDNA(profile)
	if err != nil {
		return nil, err
	}

	snapshot := &models.DnaSnapshot{
		ID:        common.NewDnaID(),
		TargetID:  targetID,
		Version:   "1.0.0",
		DnaJSON:   dnaJSON,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	if err := m.dnaStorage.CreateSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to create initial DNA snapshot: %w", err)
	}

	event := &models.LearningEvent{
		ID:           common.NewEventID(),
		TargetID:     targetID,
		DnaVersionID: snapshot.ID,
		EventType:    models.EventBirth,
		Title:        "Behavioral DNA created",
		Description:  "Initial profile v1.0.0 seeded from the default desktop identity",
	}
	if err := m.eventStorage.AppendEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record birth event: %w", err)
	}

	m.logger.Info().
		Str("target_id", targetID).
		Str("snapshot_id", snapshot.ID).
		Msg("Initial DNA created")

	return snapshot, nil
}

// Mutate applies a gene-level shallow patch to the target's active DNA and
// activates the resulting snapshot. The patch touches only the named gene;
// all other genes carry over untouched.
func (m *Mutator) Mutate(ctx context.Context, targetID string, proposal *interfaces.MutationProposal) (*MutationResult, error) {
	if !models.ValidGene(proposal.Gene) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGene, proposal.Gene)
	}

	active, err := m.dnaStorage.GetActiveSnapshot(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveDna, targetID)
	}

	current, err := active.Profile()
	if err != nil {
		return nil, err
	}

	mutated := current.Clone()
	diff, err := applyGenePatch(mutated, proposal.Gene, proposal.Change)
	if err != nil {
		return nil, err
	}

	dnaJSON, err := models.EncodeDNA(mutated)
	if err != nil {
		return nil, err
	}

	snapshot := &models.DnaSnapshot{
		ID:        common.NewDnaID(),
		TargetID:  targetID,
		Version:   models.BumpPatchVersion(active.Version),
		DnaJSON:   dnaJSON,
		ParentID:  active.ID,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	if err := m.dnaStorage.CreateSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist mutated snapshot: %w", err)
	}

	changesJSON, _ := json.Marshal(proposal.Change)
	event := &models.LearningEvent{
		ID:            common.NewEventID(),
		TargetID:      targetID,
		DnaVersionID:  snapshot.ID,
		EventType:     models.EventMutation,
		Title:         fmt.Sprintf("Mutated %s gene to v%s", proposal.Gene, snapshot.Version),
		Description:   proposal.Reason,
		AdvisorConfid: proposal.Confidence,
		DnaChanges:    string(changesJSON),
		TrustImpact:   proposal.RiskLevel.TrustImpact(),
	}
	if err := m.eventStorage.AppendEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record mutation event: %w", err)
	}

	m.logger.Debug().
		Str("target_id", targetID).
		Str("gene", string(proposal.Gene)).
		Str("version", snapshot.Version).
		Str("risk", string(proposal.RiskLevel)).
		Msg("DNA mutation applied")

	return &MutationResult{
		Snapshot:   snapshot,
		SnapshotID: snapshot.ID,
		Diff:       diff,
	}, nil
}

// applyGenePatch shallow-merges the patch into the named gene of the DNA,
// in place, and returns the key-level diff.
func applyGenePatch(d *models.DNA, gene models.Gene, patch map[string]interface{}) (Diff, error) {
	genePtr, err := geneField(d, gene)
	if err != nil {
		return Diff{}, err
	}

	before, err := structToMap(genePtr)
	if err != nil {
		return Diff{}, err
	}

	after := make(map[string]interface{}, len(before)+len(patch))
	for k, v := range before {
		after[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(after, k)
			continue
		}
		after[k] = v
	}

	merged, err := json.Marshal(after)
	if err != nil {
		return Diff{}, fmt.Errorf("failed to merge gene patch: %w", err)
	}
	if err := json.Unmarshal(merged, genePtr); err != nil {
		return Diff{}, fmt.Errorf("gene patch does not fit the %s schema: %w", gene, err)
	}

	return diffMaps(before, after), nil
}

// geneField returns a pointer to the gene's sub-record inside the DNA.
func geneField(d *models.DNA, gene models.Gene) (interface{}, error) {
	switch gene {
	case models.GeneIdentity:
		return &d.Identity, nil
	case models.GeneTiming:
		return &d.Timing, nil
	case models.GeneNetwork:
		return &d.Network, nil
	case models.GeneInteraction:
		return &d.Interaction, nil
	case models.GeneCapabilities:
		return &d.Capabilities, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownGene, gene)
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gene: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode gene: %w", err)
	}
	return out, nil
}

func diffMaps(before, after map[string]interface{}) Diff {
	var diff Diff
	for k, afterVal := range after {
		beforeVal, existed := before[k]
		if !existed {
			diff.Added = append(diff.Added, k)
			continue
		}
		if !reflect.DeepEqual(beforeVal, afterVal) {
			diff.Modified = append(diff.Modified, k)
		}
	}
	for k := range before {
		if _, kept := after[k]; !kept {
			diff.Removed = append(diff.Removed, k)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Modified)
	return diff
}
