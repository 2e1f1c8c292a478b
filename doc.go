/*
Package autoshell runs shell tasks proposed by a language model.

A task is plain text. autoshell asks the model how to do it, extracts the
fenced shell blocks from the reply, runs them, and feeds the results back
until the model answers without commands or the failure budget runs out.

# Entry points

  - HTTP: POST /task starts a run and GET /events streams its progress (SSE).
  - GitHub: issue and comment webhooks run against a checkout of the repository.
  - MCP: the run_task tool lets other agents delegate shell work.
  - CLI: "autoshell run" executes one task in the terminal.

# Layout

The core loop lives in pkg/orchestrator and depends only on the ports in
pkg/ports. Adapters for OpenAI-compatible models, the local shell, Redis,
git and GitHub live under pkg/adapters. The autoshell binary in cmd/autoshell
wires them together from a koanf configuration.

	autoshell serve --config autoshell.yaml
	echo "list the largest files in /var/log" | autoshell run
*/
package autoshell
