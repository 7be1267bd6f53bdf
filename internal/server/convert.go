package server

import (
	"go.lsp.dev/protocol"

	"github.com/f1r3fly-io/rholang-language-server/internal/completion"
	"github.com/f1r3fly-io/rholang-language-server/internal/core"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
	"github.com/f1r3fly-io/rholang-language-server/internal/symbols"
)

// Positions cross the boundary as (line, character) pairs. Characters are
// treated as Unicode scalar offsets; clients negotiating UTF-16 positions
// only diverge on lines containing astral-plane characters, which Rholang
// sources essentially never do.

func toProtocolPosition(p position.Position) protocol.Position {
	return protocol.Position{Line: uint32(p.Line), Character: uint32(p.Column)}
}

func toProtocolRange(r position.Range) protocol.Range {
	return protocol.Range{Start: toProtocolPosition(r.Start), End: toProtocolPosition(r.End)}
}

func fromProtocolRange(r protocol.Range) position.Range {
	return position.Range{
		Start: position.Position{Line: int(r.Start.Line), Column: int(r.Start.Character)},
		End:   position.Position{Line: int(r.End.Line), Column: int(r.End.Character)},
	}
}

func toProtocolLocations(locs []position.Location) []protocol.Location {
	out := make([]protocol.Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, protocol.Location{
			URI:   protocol.DocumentURI(loc.URI),
			Range: toProtocolRange(loc.Range),
		})
	}
	return out
}

func completionKind(kind completion.ItemKind) protocol.CompletionItemKind {
	switch kind {
	case completion.ItemKeyword:
		return protocol.CompletionItemKindKeyword
	case completion.ItemOperator:
		return protocol.CompletionItemKindOperator
	case completion.ItemContract:
		return protocol.CompletionItemKindFunction
	case completion.ItemFunction:
		return protocol.CompletionItemKindFunction
	default:
		return protocol.CompletionItemKindVariable
	}
}

func symbolKind(kind symbols.SymbolKind) protocol.SymbolKind {
	switch kind {
	case symbols.KindContractBind, symbols.KindFunctionDef:
		return protocol.SymbolKindFunction
	case symbols.KindTypeAnnotation:
		return protocol.SymbolKindTypeParameter
	case symbols.KindGroundedVar:
		return protocol.SymbolKindConstant
	default:
		return protocol.SymbolKindVariable
	}
}

func toDocumentSymbol(sym core.DocSymbol) protocol.DocumentSymbol {
	out := protocol.DocumentSymbol{
		Name:           sym.Name,
		Kind:           symbolKind(sym.Kind),
		Range:          toProtocolRange(sym.Range),
		SelectionRange: toProtocolRange(sym.Range),
	}
	for _, child := range sym.Children {
		out.Children = append(out.Children, toDocumentSymbol(child))
	}
	return out
}
