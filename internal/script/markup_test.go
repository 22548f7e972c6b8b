/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"testing"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
)

func TestToMarkupFromMarkupRoundTrip(t *testing.T) {
	sp := domain.Screenplay{Blocks: []domain.ScreenplayBlock{
		{Type: domain.ElementAction, Text: "Before any scene."},
		{Type: domain.ElementSceneHeading, Text: "INT. KITCHEN - DAY"},
		{Type: domain.ElementAction, Text: "Water boils."},
		{Type: domain.ElementCharacter, Text: "JOHN"},
		{Type: domain.ElementParenthetical, Text: "(smiling)"},
		{Type: domain.ElementDialogue, Text: "Hello there."},
		{Type: domain.ElementTransition, Text: "SMASH CUT TO:"},
	}}
	md := ToMarkup(sp)
	back := FromMarkup(md)
	if len(back.Blocks) != len(sp.Blocks) {
		t.Fatalf("markup:\n%s\nblocks: %+v", md, back.Blocks)
	}
	for i := range sp.Blocks {
		if back.Blocks[i] != sp.Blocks[i] {
			t.Fatalf("block %d = %+v, want %+v\nmarkup:\n%s", i, back.Blocks[i], sp.Blocks[i], md)
		}
	}
}

func TestToMarkupSplitsConsecutiveDialogue(t *testing.T) {
	sp := domain.Screenplay{Blocks: []domain.ScreenplayBlock{
		{Type: domain.ElementCharacter, Text: "JOHN"},
		{Type: domain.ElementDialogue, Text: "Hello there."},
		{Type: domain.ElementDialogue, Text: "Anyone home?"},
	}}
	want := "JOHN\nHello there.\n\nAnyone home?\n"
	if got := ToMarkup(sp); got != want {
		t.Fatalf("ToMarkup = %q, want %q", got, want)
	}
}

func TestFromMarkupStripsQuotesAndFormatting(t *testing.T) {
	sp := FromMarkup("**JOHN**\n> *Hello* there.\n\n---\n\nOutside.")
	if len(sp.Blocks) != 3 {
		t.Fatalf("got %+v", sp.Blocks)
	}
	if sp.Blocks[0].Type != domain.ElementCharacter || sp.Blocks[1].Type != domain.ElementDialogue || sp.Blocks[1].Text != "Hello there." {
		t.Fatalf("unexpected: %+v", sp.Blocks)
	}
	if sp.Blocks[2].Type != domain.ElementAction {
		t.Fatalf("rule should reset context: %+v", sp.Blocks[2])
	}
}

func TestGroupScenesSyntheticLeadingScene(t *testing.T) {
	blocks := []domain.ScreenplayBlock{
		{Type: domain.ElementAction, Text: "Cold open."},
		{Type: domain.ElementSceneHeading, Text: "EXT. ROOF - NIGHT"},
		{Type: domain.ElementAction, Text: "Wind."},
		{Type: domain.ElementSceneHeading, Text: "INT. STAIRS - NIGHT"},
	}
	scenes := GroupScenes(blocks)
	if len(scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %+v", scenes)
	}
	if scenes[0].Slugline != "" || len(scenes[0].Blocks) != 1 {
		t.Fatalf("leading scene wrong: %+v", scenes[0])
	}
	if scenes[2].Slugline != "INT. STAIRS - NIGHT" || len(scenes[2].Blocks) != 0 {
		t.Fatalf("last scene wrong: %+v", scenes[2])
	}
	flat := Flatten(scenes)
	if len(flat) != len(blocks) {
		t.Fatalf("Flatten lost blocks: %+v", flat)
	}
}
