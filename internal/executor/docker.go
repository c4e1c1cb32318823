package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/docker/go-units"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"

	"github.com/royalerun/royale/internal/experiment"
	"github.com/royalerun/royale/internal/trial"
)

// Docker is an optional executor backend that runs a trial's command inside
// a container instead of as a bare child process, for experiments that set
// Experiment.Container. It uses context-timeout-based classification
// (exit code 124 on timeout) and Royale's TrialInput/TrialOutput
// contract: the trial's input JSON is bind-mounted
// into the container rather than attached to a live stdin stream, and the
// container's command is expected to read it from ROYALE_INPUT_PATH and
// write a TrialOutput document to ROYALE_OUTPUT_PATH.
type Docker struct {
	// MemoryLimit is parsed with github.com/docker/go-units so operators
	// can write "512m"/"1g" the way they would on a docker run command
	// line. It is the only resource limit; there is no CPU limit.
	MemoryLimit string
}

const (
	inputMountPath  = "/royale/input.json"
	outputMountPath = "/royale/output.json"
)

func NewDocker() *Docker { return &Docker{} }

func (d *Docker) ExecTrial(ctx context.Context, exp *experiment.Experiment, t trial.Trial) (trial.Trial, error) {
	if err := ctx.Err(); err != nil {
		return t, err
	}
	if exp.Container() == "" {
		return withErrorCode(t, 1, "config", "docker executor requires Experiment.Container"), nil
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return withErrorCode(t, 1, "docker", fmt.Sprintf("creating docker client: %v", err)), nil
	}
	defer cli.Close()

	workDir, err := os.MkdirTemp("", "royale-trial-*")
	if err != nil {
		return withErrorCode(t, 1, "io", fmt.Sprintf("creating scratch dir: %v", err)), nil
	}
	defer os.RemoveAll(workDir)

	inputJSON, err := json.Marshal(t.Input)
	if err != nil {
		return withErrorCode(t, 1, "marshal", err.Error()), nil
	}
	inputHostPath := filepath.Join(workDir, "input.json")
	if err := os.WriteFile(inputHostPath, inputJSON, 0o644); err != nil {
		return withErrorCode(t, 1, "io", err.Error()), nil
	}
	outputHostPath := filepath.Join(workDir, "output.json")

	envSlice := []string{"ROYALE_INPUT_PATH=" + inputMountPath, "ROYALE_OUTPUT_PATH=" + outputMountPath}
	for k, v := range exp.Env() {
		envSlice = append(envSlice, k+"="+v)
	}

	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: inputHostPath, Target: inputMountPath, ReadOnly: true},
			{Type: mount.TypeBind, Source: outputHostPath, Target: outputMountPath},
		},
	}
	if d.MemoryLimit != "" {
		if bytes, err := units.RAMInBytes(d.MemoryLimit); err == nil {
			hostCfg.Memory = bytes
		}
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config: &container.Config{
			Image: exp.Container(),
			Cmd:   exp.Cmd(),
			Env:   envSlice,
			Labels: map[string]string{"royale": "trial"},
		},
		HostConfig: hostCfg,
	})
	if err != nil {
		return withErrorCode(t, 1, "docker", fmt.Sprintf("creating container: %v", err)), nil
	}
	containerID := createResp.ID
	defer cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})

	runCtx := ctx
	if exp.Timeout() > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, exp.Timeout())
		defer cancel()
	}

	if _, err := cli.ContainerStart(runCtx, containerID, client.ContainerStartOptions{}); err != nil {
		return withErrorCode(t, 1, "docker", fmt.Sprintf("starting container: %v", err)), nil
	}

	waitResult := cli.ContainerWait(runCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	var exitCode int
	timedOut := false
	select {
	case err := <-waitResult.Error:
		if err != nil {
			cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
			exitCode, timedOut = 124, true
		}
	case status := <-waitResult.Result:
		exitCode = int(status.StatusCode)
	}

	stderr := containerLogs(cli, containerID)

	if timedOut {
		return withErrorCode(t, 124, "timeout", "trial exceeded experiment timeout"), nil
	}
	if exitCode != 0 {
		t.Status = trial.NewErrorStatus(trial.NewExitStatus(exitCode, "", stderr))
		return t, nil
	}

	outBytes, err := os.ReadFile(outputHostPath)
	if err != nil || len(outBytes) == 0 {
		t.Status = trial.NewErrorStatus(trial.NewBadOutput("", stderr))
		return t, nil
	}
	var out trial.TrialOutput
	if err := json.Unmarshal(outBytes, &out); err != nil {
		t.Status = trial.NewErrorStatus(trial.NewBadOutput(string(outBytes), stderr))
		return t, nil
	}
	t.Status = trial.NewCompleteStatus(out, stderr)
	return t, nil
}

func containerLogs(cli *client.Client, containerID string) string {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{ShowStderr: true, Tail: "200"})
	if err != nil || logReader == nil {
		return ""
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return string(data)
}
