package ports

import (
	"context"

	"github.com/verdantlabs/espalier/pkg/domain"
)

// Compiler converts a frozen AnswerSet into a DerivedArtifact. The call may
// be remote and slow; the engine bounds it only by the caller's context.
// A Compile error is never fatal: the engine recovers with the local
// fallback generator.
type Compiler interface {
	Compile(ctx context.Context, answers domain.AnswerSet) (*domain.DerivedArtifact, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(ctx context.Context, answers domain.AnswerSet) (*domain.DerivedArtifact, error)

// Compile implements Compiler.
func (f CompilerFunc) Compile(ctx context.Context, answers domain.AnswerSet) (*domain.DerivedArtifact, error) {
	return f(ctx, answers)
}

// ArtifactConsumer receives ownership of the DerivedArtifact plus the
// original answers once the wizard hands off. Everything after the handoff
// is the consumer's responsibility.
type ArtifactConsumer interface {
	Accept(ctx context.Context, artifact *domain.DerivedArtifact, answers domain.AnswerSet) error
}

// ArtifactConsumerFunc adapts a function to the ArtifactConsumer interface.
type ArtifactConsumerFunc func(ctx context.Context, artifact *domain.DerivedArtifact, answers domain.AnswerSet) error

// Accept implements ArtifactConsumer.
func (f ArtifactConsumerFunc) Accept(ctx context.Context, artifact *domain.DerivedArtifact, answers domain.AnswerSet) error {
	return f(ctx, artifact, answers)
}
