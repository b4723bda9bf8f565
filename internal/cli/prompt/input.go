package prompt

import "github.com/manifoldco/promptui"

// InputWithValidation prompts until validate accepts the input.
func InputWithValidation(label, defaultValue string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: validate,
	}
	result, err := p.Run()
	return result, wrapError(err)
}
