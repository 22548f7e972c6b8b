/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package inline

import (
	"testing"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
)

func TestToRunsLeftmostMatchWins(t *testing.T) {
	runs := ToRuns("a ~~gone~~ then **bold** and *it*")
	want := []domain.Run{
		{Text: "a "},
		{Text: "gone", Strike: true},
		{Text: " then "},
		{Text: "bold", Bold: true},
		{Text: " and "},
		{Text: "it", Italic: true},
	}
	if len(runs) != len(want) {
		t.Fatalf("got %d runs, want %d: %+v", len(runs), len(want), runs)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Fatalf("run %d = %+v, want %+v", i, runs[i], want[i])
		}
	}
}

func TestToRunsTieGoesToFirstPattern(t *testing.T) {
	// "***x***" also matches the bold and italic patterns at offset 0.
	runs := ToRuns("***both***")
	if len(runs) != 1 || !runs[0].Bold || !runs[0].Italic || runs[0].Text != "both" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestToRunsProtectsCode(t *testing.T) {
	runs := ToRuns("use `a*b*c` here and\n```\n**not bold**\n```\n")
	for _, r := range runs {
		if !r.Plain() {
			t.Fatalf("code content must not be styled: %+v", runs)
		}
	}
	if got := Strip("use `a*b*c` here"); got != "use `a*b*c` here" {
		t.Fatalf("Strip altered code span: %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain text only",
		"Some **bold** text.",
		"*italic* start and ~~struck~~ end",
		"mixed __strong__ and _soft_ forms",
		"***loud*** then `co*de`",
		"**a** **b**",
	}
	for _, in := range inputs {
		if got := FromRuns(ToRuns(in)); got != in {
			t.Errorf("round trip %q -> %q", in, got)
		}
	}
}

func TestConcatenationReconstitutesText(t *testing.T) {
	in := "x **y** z ~~w~~"
	var s string
	for _, r := range ToRuns(in) {
		s += r.Text
	}
	if s != "x y z w" {
		t.Fatalf("concatenated text = %q", s)
	}
}

func TestFromRunsCanonicalDelimiters(t *testing.T) {
	got := FromRuns([]domain.Run{{Text: "a", Bold: true}, {Text: " "}, {Text: "b", Italic: true, Strike: true}})
	if got != "**a** ~~*b*~~" {
		t.Fatalf("FromRuns = %q", got)
	}
}

func TestUnmatchedDelimiterIsLiteral(t *testing.T) {
	if got := Strip("2 * 3 = 6"); got != "2 * 3 = 6" {
		t.Fatalf("single asterisk must stay literal: %q", got)
	}
}
