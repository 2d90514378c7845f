package lifecycle

import (
	"fmt"
	"os"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// CurrentContext reads the current-context pointer from the kubeconfig at
// path. A missing file or unset pointer both read as "".
func CurrentContext(path string) (string, error) {
	config, err := loadKubeconfig(path)
	if err != nil {
		return "", err
	}
	return config.CurrentContext, nil
}

// SetCurrentContext rewrites only the current-context pointer of the
// kubeconfig at path. Credential contents are never touched. Setting ""
// clears the pointer.
func SetCurrentContext(path, name string) error {
	config, err := loadKubeconfig(path)
	if err != nil {
		return err
	}
	config.CurrentContext = name
	if err := clientcmd.WriteToFile(*config, path); err != nil {
		return fmt.Errorf("failed to write kubeconfig: %w", err)
	}
	return nil
}

func loadKubeconfig(path string) (*clientcmdapi.Config, error) {
	config, err := clientcmd.LoadFromFile(path)
	if os.IsNotExist(err) {
		return clientcmdapi.NewConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return config, nil
}
