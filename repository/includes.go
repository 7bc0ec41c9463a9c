/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import "strings"

// ParseIncludes splits a raw comma-separated include string into trimmed,
// non-empty entries.
func ParseIncludes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	entries := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			entries = append(entries, p)
		}
	}
	return entries
}

// ResolveIncludes returns the relation eager-loaded for each entry: the text
// before the entry's first comma. An entry "a,b" therefore loads only "a".
func ResolveIncludes(entries []string) []string {
	relations := make([]string, 0, len(entries))
	for _, e := range entries {
		first, _, _ := strings.Cut(e, ",")
		if first = strings.TrimSpace(first); first != "" {
			relations = append(relations, first)
		}
	}
	return relations
}
