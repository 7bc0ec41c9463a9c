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

package database

import (
	"reflect"
	"sort"
	"sync"
)

var defaultRegistry = newModelRegistry()

// SQLModel is an entity model known to the persistence layer. Instance
// returns a bun-compatible struct pointer; Priority orders table creation
// (lower values first).
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// ModelRegistry stores SQL models, one per entity type, and exposes them in
// priority order.
type ModelRegistry interface {
	Register(model SQLModel) bool
	Models() []SQLModel
	Lookup(name string) (SQLModel, bool)
}

type modelRegistry struct {
	models []SQLModel
	byType map[reflect.Type]struct{}
	mutex  sync.RWMutex
}

func newModelRegistry() ModelRegistry {
	return &modelRegistry{
		models: make([]SQLModel, 0),
		byType: make(map[reflect.Type]struct{}),
	}
}

// Register adds model unless its entity type is already registered.
func (r *modelRegistry) Register(model SQLModel) bool {
	t := modelType(model.Instance())
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.byType[t]; ok {
		return false
	}
	r.byType[t] = struct{}{}
	r.models = append(r.models, model)
	return true
}

func (r *modelRegistry) Models() []SQLModel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]SQLModel, len(r.models))
	copy(result, r.models)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

// Lookup finds a model by entity type name.
func (r *modelRegistry) Lookup(name string) (SQLModel, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, m := range r.models {
		if modelType(m.Instance()).Name() == name {
			return m, true
		}
	}
	return nil, false
}

func modelType(instance interface{}) reflect.Type {
	t := reflect.TypeOf(instance)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

type ModelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a struct instance and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &ModelAdapter{
		instance: instance,
		priority: priority,
	}
}

func (a *ModelAdapter) Instance() interface{} {
	return a.instance
}

func (a *ModelAdapter) Priority() int {
	return a.priority
}

// GetRegisteredModels returns all models registered in the default registry
// sorted by ascending priority.
func GetRegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

// RegisteredModel adds a model to the default registry.
func RegisteredModel(model SQLModel) {
	defaultRegistry.Register(model)
}

// RegisterEntity registers a (*T)(nil) style instance with the given priority.
func RegisterEntity(instance interface{}, priority int) {
	defaultRegistry.Register(NewModelAdapter(instance, priority))
}

// LookupModel finds a registered model by entity type name.
func LookupModel(name string) (SQLModel, bool) {
	return defaultRegistry.Lookup(name)
}

func RegisteredModelInstances() []interface{} {
	models := GetRegisteredModels()
	modelInstances := make([]interface{}, len(models))
	for i, model := range models {
		modelInstances[i] = model.Instance()
	}
	return modelInstances
}
