package client

import "github.com/cloudwego/eino/components/model"

type geminiOptions struct {
	ThinkingBudget *int
}

// WithThinkingBudget sets the Gemini thinking budget hint. Claude ignores it.
func WithThinkingBudget(budget int) model.Option {
	return model.WrapImplSpecificOptFn(func(o *geminiOptions) {
		o.ThinkingBudget = &budget
	})
}
