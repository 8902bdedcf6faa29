package ui

import (
	"github.com/AlecAivazis/survey/v2"
)

// AskProvider prompts the user to select an LLM provider.
func AskProvider(options []string, def string) (string, error) {
	var provider string
	prompt := &survey.Select{
		Message: "Select an LLM provider:",
		Options: options,
	}
	for _, opt := range options {
		if opt == def {
			prompt.Default = def
			break
		}
	}

	if err := survey.AskOne(prompt, &provider); err != nil {
		return "", err
	}

	return provider, nil
}

// AskModel prompts for the model name, offering the provider default.
func AskModel(def string) (string, error) {
	var model string
	prompt := &survey.Input{
		Message: "Model:",
		Default: def,
	}

	if err := survey.AskOne(prompt, &model); err != nil {
		return "", err
	}

	return model, nil
}

// AskAPIKey prompts for an API key without echoing it. An empty answer
// means the key comes from the environment instead.
func AskAPIKey(keyEnvVar string) (string, error) {
	var key string
	prompt := &survey.Password{
		Message: "API key (leave blank to use " + keyEnvVar + "):",
	}

	if err := survey.AskOne(prompt, &key); err != nil {
		return "", err
	}

	return key, nil
}

// AskBaseURL prompts for an endpoint override. Blank keeps the provider
// default.
func AskBaseURL(current string) (string, error) {
	var baseURL string
	prompt := &survey.Input{
		Message: "API base URL (leave blank for the provider default):",
		Default: current,
	}

	if err := survey.AskOne(prompt, &baseURL); err != nil {
		return "", err
	}

	return baseURL, nil
}
