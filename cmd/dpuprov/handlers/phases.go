package handlers

import "context"

// BFB reimages every worker's DPU with the BFB bundle and waits for all
// nodes to finish.
func BFB(ctx context.Context, opts Options) error {
	return execute(ctx, opts, "reprovision the BFB", false, func(ctx context.Context, s *session) error {
		if err := s.orch.ProvisionBFB(ctx, s.cfg, s.cfg.BFB, s.futures); err != nil {
			return err
		}
		return s.futures.WaitAll(ctx)
	})
}

// NicMode switches the DPU mode through the MachineConfigPool and cold
// resets every worker.
func NicMode(ctx context.Context, opts Options) error {
	return execute(ctx, opts, "switch the DPU mode", true, func(ctx context.Context, s *session) error {
		if err := s.orch.SwitchNicMode(ctx, s.cfg, s.cfg.NicMode, s.futures); err != nil {
			return err
		}
		return s.futures.WaitAll(ctx)
	})
}

// Run executes BFB provisioning followed by the mode switch.
func Run(ctx context.Context, opts Options) error {
	return execute(ctx, opts, "reprovision and switch the DPU mode", true, func(ctx context.Context, s *session) error {
		return s.orch.Run(ctx, s.cfg, s.futures)
	})
}
