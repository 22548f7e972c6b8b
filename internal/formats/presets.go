/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package formats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leoloveisme/crowdly-sub001/internal/config"
)

// PresetName names a page geometry for paginated export.
type PresetName string

const (
	PresetLetter     PresetName = "letter"
	PresetA4         PresetName = "a4"
	PresetA5         PresetName = "a5"
	PresetScreenplay PresetName = "screenplay"
)

type preset struct {
	widthPt, heightPt, marginPt float64
	fontSize                    float64
}

var presets = map[PresetName]preset{
	PresetLetter:     {widthPt: 612, heightPt: 792, marginPt: 54, fontSize: 12},
	PresetA4:         {widthPt: 595.28, heightPt: 841.89, marginPt: 56.69, fontSize: 12},
	PresetA5:         {widthPt: 419.53, heightPt: 595.28, marginPt: 42.52, fontSize: 10},
	PresetScreenplay: {widthPt: 612, heightPt: 792, marginPt: 72, fontSize: 12},
}

// Presets lists the preset names in sorted order.
func Presets() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// ApplyPreset overwrites page geometry and body size in r. DPI and font
// path are kept.
func ApplyPreset(r config.RenderConfig, name string) (config.RenderConfig, error) {
	p, ok := presets[PresetName(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return r, fmt.Errorf("unknown page preset %q (want one of %s)", name, strings.Join(Presets(), ", "))
	}
	r.PageWidthPt = p.widthPt
	r.PageHeightPt = p.heightPt
	r.MarginPt = p.marginPt
	r.FontSize = p.fontSize
	return r, nil
}
