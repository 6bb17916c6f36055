// Package prompt drives interactive authoring of generation requests. It
// walks the type schema registry and only asks for options the answers so
// far make visible.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-modelgen/pkg/model"
	"github.com/goliatone/go-modelgen/pkg/naming"
	"github.com/goliatone/go-modelgen/pkg/orchestrator"
	"github.com/goliatone/go-modelgen/pkg/schema"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Author asks a Driver for an entity and its fields.
type Author struct {
	driver   Driver
	registry *schema.Registry
}

// NewAuthor returns an Author prompting through driver.
func NewAuthor(driver Driver, registry *schema.Registry) *Author {
	return &Author{driver: driver, registry: registry}
}

// Request prompts for the entity, then for fields until the user stops.
func (a *Author) Request(ctx context.Context) (orchestrator.Request, error) {
	if a.driver == nil || a.registry == nil {
		return orchestrator.Request{}, errors.New("prompt: driver and registry are required")
	}
	entity, err := a.Entity(ctx)
	if err != nil {
		return orchestrator.Request{}, err
	}
	req := orchestrator.Request{Entity: entity}
	for {
		more, err := a.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Add a field to %s?", entity.Title),
			Default: len(req.Fields) == 0,
		})
		if err != nil {
			return orchestrator.Request{}, err
		}
		if !more {
			return req, nil
		}
		field, err := a.Field(ctx)
		if err != nil {
			return orchestrator.Request{}, err
		}
		req.Fields = append(req.Fields, field)
	}
}

// Entity prompts for the title and slug. The slug defaults to the
// kebab-cased title.
func (a *Author) Entity(ctx context.Context) (model.Entity, error) {
	title, err := a.driver.Input(ctx, InputConfig{Message: "Title", Validator: nonEmpty})
	if err != nil {
		return model.Entity{}, err
	}
	slug, err := a.driver.Input(ctx, InputConfig{
		Message:   "Slug",
		Default:   slugify(title),
		Help:      "lower-case words separated by dashes",
		Validator: validSlug,
	})
	if err != nil {
		return model.Entity{}, err
	}
	return model.Entity{Title: strings.TrimSpace(title), Slug: slug}, nil
}

// Field prompts for one field instance.
func (a *Author) Field(ctx context.Context) (model.FieldInstance, error) {
	name, err := a.driver.Input(ctx, InputConfig{Message: "Field name", Validator: nonEmpty})
	if err != nil {
		return nil, err
	}
	required, err := a.driver.Confirm(ctx, ConfirmConfig{Message: "Required?"})
	if err != nil {
		return nil, err
	}
	instance := model.FieldInstance{
		model.KeyName:     strings.TrimSpace(name),
		model.KeyRequired: required,
	}
	if err := a.ask(ctx, a.registry.Root(), instance); err != nil {
		return nil, err
	}
	return instance, nil
}

func (a *Author) ask(ctx context.Context, node schema.Node, target map[string]any) error {
	kind := node.Kind
	if kind == "" {
		kind = schema.KindOf(node.Type)
	}
	switch kind {
	case schema.KindChoiceList:
		return a.askChoices(ctx, node, target)
	case schema.KindObject:
		sub := map[string]any{}
		for _, child := range node.Schema {
			if err := a.ask(ctx, child, sub); err != nil {
				return err
			}
		}
		target[node.Name] = sub
		return nil
	case schema.KindArray:
		return a.askItems(ctx, node, target)
	default:
		value, err := a.askScalar(ctx, node)
		if err != nil {
			return err
		}
		target[node.Name] = value
		return nil
	}
}

func (a *Author) askChoices(ctx context.Context, node schema.Node, target map[string]any) error {
	labels := make([]string, len(node.Choices))
	for i, choice := range node.Choices {
		labels[i] = choiceLabel(choice)
	}
	cfg := SelectConfig{Message: nodeLabel(node), Options: labels, Help: node.Help}

	var picked []int
	if node.Type == schema.TypeSelect {
		idx, err := a.driver.Select(ctx, cfg)
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(node.Choices) {
			return fmt.Errorf("prompt: %s: no choice selected", node.Name)
		}
		target[node.Name] = node.Choices[idx].Value
		picked = []int{idx}
	} else {
		indices, err := a.driver.MultiSelect(ctx, cfg)
		if err != nil {
			return err
		}
		values := make([]any, 0, len(indices))
		for _, idx := range indices {
			if idx < 0 || idx >= len(node.Choices) {
				continue
			}
			values = append(values, node.Choices[idx].Value)
			picked = append(picked, idx)
		}
		target[node.Name] = values
	}

	for _, idx := range picked {
		for _, name := range node.Choices[idx].ShowFields {
			sub, ok := a.registry.Lookup(name)
			if !ok {
				return fmt.Errorf("prompt: %w: %s", schema.ErrUnknownNode, name)
			}
			if _, done := target[sub.Name]; done {
				continue
			}
			if err := a.ask(ctx, sub, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Author) askItems(ctx context.Context, node schema.Node, target map[string]any) error {
	var items []any
	for {
		more, err := a.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Add an entry to %s?", nodeLabel(node)),
		})
		if err != nil {
			return err
		}
		if !more {
			break
		}
		item := map[string]any{}
		for _, child := range node.Schema {
			if err := a.ask(ctx, child, item); err != nil {
				return err
			}
		}
		items = append(items, item)
	}
	if items == nil {
		items = []any{}
	}
	target[node.Name] = items
	return nil
}

func (a *Author) askScalar(ctx context.Context, node schema.Node) (any, error) {
	label := nodeLabel(node)
	switch node.Type {
	case schema.TypeBoolean:
		return a.driver.Confirm(ctx, ConfirmConfig{Message: label, Help: node.Help})
	case schema.TypeInteger:
		raw, err := a.driver.Input(ctx, InputConfig{Message: label, Help: node.Help, Validator: integer})
		if err != nil {
			return nil, err
		}
		return strconv.Atoi(strings.TrimSpace(raw))
	case schema.TypeFloat:
		raw, err := a.driver.Input(ctx, InputConfig{Message: label, Help: node.Help, Validator: decimal})
		if err != nil {
			return nil, err
		}
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	default:
		return a.driver.Input(ctx, InputConfig{Message: label, Help: node.Help})
	}
}

func nodeLabel(node schema.Node) string {
	if node.Label != "" {
		return node.Label
	}
	return naming.StartCase(node.Name)
}

func choiceLabel(choice schema.Choice) string {
	if choice.Label != "" {
		return choice.Label
	}
	return choice.Value
}

func slugify(title string) string {
	words := naming.Words(title)
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	return strings.Join(words, "-")
}

func nonEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("a value is required")
	}
	return nil
}

func validSlug(value string) error {
	if !slugPattern.MatchString(value) {
		return errors.New("use lower-case letters, digits and single dashes")
	}
	return nil
}

func integer(value string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
		return errors.New("enter a whole number")
	}
	return nil
}

func decimal(value string) error {
	if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
		return errors.New("enter a number")
	}
	return nil
}
