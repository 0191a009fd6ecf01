// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package signing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact is the downloadable record of a vote witness
type Artifact struct {
	GovActionID  string `json:"govActionID"`
	VoterKeyHash string `json:"voterKeyHash"`
	Witness      string `json:"witness"`
}

func NewArtifact(govActionID string, voterKeyHash string, witnessHex string) Artifact {
	return Artifact{
		GovActionID:  govActionID,
		VoterKeyHash: voterKeyHash,
		Witness:      witnessHex,
	}
}

// Filename is built from the first 24 characters of the governance action ID
// and the first 8 of the voter key hash
func (a Artifact) Filename() string {
	return fmt.Sprintf(
		"%s_%s.witness",
		truncate(a.GovActionID, 24),
		truncate(a.VoterKeyHash, 8),
	)
}

func (a Artifact) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// WriteFile writes the artifact into dir and returns the file path
func (a Artifact) WriteFile(dir string) (string, error) {
	data, err := a.MarshalIndent()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, a.Filename())
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write witness file: %w", err)
	}
	return path, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
