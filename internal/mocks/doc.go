// Package mocks provides centralized mock implementations of the external
// service clients used by the task adapters.
//
// Each mock has a function field per interface method and records its
// calls, so tests can script responses and verify what was sent:
//
//	client := &mocks.MockVideoClient{
//	    CreateJobFn: func(ctx context.Context, req domain.VideoGenerationRequest) (string, error) {
//	        return "job-1", nil
//	    },
//	}
//	adapter := task.NewVideoGenerationAdapter(client, store, task.DefaultVideoPollPolicy())
package mocks
