package device

import (
	"time"

	"github.com/imamik/dpuprov/internal/config"
	"github.com/imamik/dpuprov/internal/platform/ssh"
)

// sshRetryDelay matches the maximum backoff delay of the SSH client.
const sshRetryDelay = 10 * time.Second

// NewSSHShellFactory returns a ShellFactory dialing address over SSH.
// Dial retries are spread over timeouts.SSH.
func NewSSHShellFactory(address string, sshCfg config.SSHConfig, privateKey []byte, timeouts *config.Timeouts) ShellFactory {
	maxRetries := int(timeouts.SSH / sshRetryDelay)
	if maxRetries < 1 {
		maxRetries = 1
	}
	return func(user string) (Shell, error) {
		client, err := ssh.NewClient(&ssh.Config{
			Host:       address,
			Port:       sshCfg.Port,
			User:       user,
			PrivateKey: privateKey,
			Password:   sshCfg.Password,
			MaxRetries: maxRetries,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
