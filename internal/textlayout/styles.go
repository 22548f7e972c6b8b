/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "github.com/leoloveisme/crowdly-sub001/internal/domain"

// TextStyle is the paragraph-level look of one canonical block kind.
// Sizes are in points relative to a 12pt body; distances are in pixels at
// the layout resolution.
type TextStyle struct {
	Name        string
	Font        FontSpec
	Indent      float32
	SpaceBefore float32
	SpaceAfter  float32
	Leading     float32
	Border      bool // left rule, blockquotes
}

var headingSizes = [7]float32{0, 24, 20, 17, 15, 13, 12}

var builtinStyles = map[string]TextStyle{
	"Body":  {Name: "Body", Font: FontSpec{SizePt: 12}, SpaceAfter: 8, Leading: 2},
	"Quote": {Name: "Quote", Font: FontSpec{SizePt: 12, Italic: true}, Indent: 24, SpaceAfter: 8, Leading: 2, Border: true},
	"Code":  {Name: "Code", Font: FontSpec{SizePt: 10, Mono: true}, Indent: 12, SpaceAfter: 8},
	"Rule":  {Name: "Rule", SpaceBefore: 6, SpaceAfter: 12},
}

// HeadingStyle returns the style of a heading at level 1..6.
func HeadingStyle(level int) TextStyle {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return TextStyle{
		Name:        "Heading" + string(rune('0'+level)),
		Font:        FontSpec{SizePt: headingSizes[level], Bold: true},
		SpaceBefore: 12,
		SpaceAfter:  6,
		Leading:     2,
	}
}

// StyleFor picks the style of a block and scales its font so that a 12pt
// style renders at bodyPt.
func StyleFor(b domain.Block, bodyPt float32) TextStyle {
	var st TextStyle
	switch b.Kind {
	case domain.KindHeading:
		st = HeadingStyle(b.Level)
	case domain.KindBlockquote:
		st = builtinStyles["Quote"]
	case domain.KindCode:
		st = builtinStyles["Code"]
	case domain.KindRule:
		st = builtinStyles["Rule"]
	default:
		st = builtinStyles["Body"]
	}
	if bodyPt > 0 && st.Font.SizePt > 0 {
		st.Font.SizePt = st.Font.SizePt * bodyPt / 12
	}
	return st
}
