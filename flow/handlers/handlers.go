// Package handlers provides built-in node handlers for the common node
// types: input/output passthrough, transform mapping, conditional and switch
// branching, LLM calls, LLM-backed routing, and HTTP requests.
//
// Each handler implements flow.Handler and is registered against its node
// type with RegisterBuiltins. Handlers receive configuration that the engine
// has already template-resolved; they never see raw placeholders.
package handlers

import (
	"github.com/flowmaestro/flowmaestro-go/flow"
	"github.com/flowmaestro/flowmaestro-go/flow/model"
)

type binding struct {
	nodeType flow.NodeType
	handler  flow.Handler
}

// RegisterBuiltins binds the built-in handlers to their node types. The
// llm and router handlers are registered only when chat is non-nil.
//
// Example:
//
//	registry := flow.NewRegistry()
//	if err := handlers.RegisterBuiltins(registry, chatModel); err != nil {
//	    log.Fatal(err)
//	}
//	engine := flow.NewEngine(registry)
func RegisterBuiltins(reg *flow.Registry, chat model.ChatModel) error {
	passthrough := NewPassthrough()
	bindings := []binding{
		{flow.NodeInput, passthrough},
		{flow.NodeOutput, passthrough},
		{flow.NodeTransform, NewTransform()},
		{flow.NodeConditional, NewConditional()},
		{flow.NodeSwitch, NewSwitch()},
		{flow.NodeHTTP, NewHTTP()},
	}
	if chat != nil {
		bindings = append(bindings,
			binding{flow.NodeLLM, NewLLM(chat)},
			binding{flow.NodeRouter, NewRouter(chat)},
		)
	}

	for _, b := range bindings {
		if err := reg.Register(b.nodeType, b.handler); err != nil {
			return err
		}
	}
	return nil
}
