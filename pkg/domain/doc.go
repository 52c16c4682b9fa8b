/*
Package domain contains the core domain models for the Espalier wizard engine.

It defines the fundamental entities of a guided intake flow, such as Steps,
the AnswerSet, the undo History and the DraftRecord. This package is kept pure
and free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - StepDefinition: One screen of the wizard, with its validity predicate.
  - AnswerSet: The evolving, partial record of everything the user entered.
  - History: The snapshot log enabling undo/redo over the AnswerSet.
  - DraftRecord: The persisted, resumable form of an in-progress session.
  - DerivedArtifact: The structured output compiled from a finished AnswerSet.
*/
package domain
