package extract

import (
	"testing"

	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestCommands_NoBlocks(t *testing.T) {
	inputs := []string{
		"simple test",
		"",
		"I am done. The repository has been updated.",
		"  # shell\nindented marker does not count",
		"#Shell\ncase matters",
		"`single backticks` are not fences",
	}

	for _, input := range inputs {
		assert.Empty(t, Commands(input), "input %q", input)
	}
}

func TestCommands_SingleCommandMarker(t *testing.T) {
	inputs := []string{"# shell\nsimple test", "#shell\nsimple test"}

	for _, input := range inputs {
		assert.Equal(t, []domain.Command{input}, Commands(input))
	}

	t.Run("Trimmed And Not Fence Stripped", func(t *testing.T) {
		input := "#shell\nls\n```shell\npwd\n```\n\n"
		assert.Equal(t, []domain.Command{"#shell\nls\n```shell\npwd\n```"}, Commands(input))
	})
}

func TestCommands_FencedBlocks(t *testing.T) {
	text := "First check the API:\n" +
		"```shell\ncurl -H \"Authorization: token $GITHUB_TOKEN\" https://api.github.com/\n```\n" +
		"Then create the repository:\n" +
		"```\n# shell\ncurl -X POST https://api.github.com/orgs/octocat/repos\n```\n" +
		"And finally:\n" +
		"```shell\ncd repo\nls -la\n```"

	expected := []domain.Command{
		"set -e\ncurl -H \"Authorization: token $GITHUB_TOKEN\" https://api.github.com/",
		"set -e\n# shell\ncurl -X POST https://api.github.com/orgs/octocat/repos",
		"set -e\ncd repo\nls -la",
	}

	assert.Equal(t, expected, Commands(text))
}

func TestCommands_ShellTagOnlyAsWholeWord(t *testing.T) {
	text := "```shellcheck script.sh```\n```sh\necho hi\n```"

	assert.Equal(t, []domain.Command{
		"set -e\nshellcheck script.sh",
		"set -e\nsh\necho hi",
	}, Commands(text))
}

func TestCommands_StripsOnlyOneTag(t *testing.T) {
	assert.Equal(t, []domain.Command{"set -e\nshell"}, Commands("```shell shell```"))
}

func TestCommands_UnterminatedFence(t *testing.T) {
	t.Run("Only Opening", func(t *testing.T) {
		assert.Empty(t, Commands("Run this:\n```shell\nmake test"))
	})

	t.Run("After Complete Block", func(t *testing.T) {
		text := "```\nmake build\n```\nthen\n```\nmake test"
		assert.Equal(t, []domain.Command{"set -e\nmake build"}, Commands(text))
	})
}

func TestCommands_CountMatchesBlocks(t *testing.T) {
	for n := 0; n < 5; n++ {
		text := "preamble\n"
		for i := 0; i < n; i++ {
			text += "```shell\necho step\n```\ntext between\n"
		}
		commands := Commands(text)
		assert.Len(t, commands, n)
		for _, cmd := range commands {
			assert.Equal(t, "set -e\necho step", cmd)
		}
	}
}
