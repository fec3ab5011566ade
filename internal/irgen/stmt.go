package irgen

import (
	"fmt"

	"github.com/withRiver/SysY-Compiler/internal/ast"
	"github.com/withRiver/SysY-Compiler/internal/cerrors"
)

// lowerStmt lowers one statement (spec.md §4.3.4). Each branch is
// responsible for leaving fc.terminated correctly set.
func (fc *funcCtx) lowerStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Block:
		return fc.lowerBlock(n)
	case *ast.AssignStmt:
		return fc.lowerAssign(n)
	case *ast.ExprStmt:
		if n.Expr == nil {
			return nil
		}
		_, err := fc.lowerExpr(n.Expr)
		return err
	case *ast.ReturnStmt:
		return fc.lowerReturn(n)
	case *ast.IfStmt:
		return fc.lowerIf(n)
	case *ast.WhileStmt:
		return fc.lowerWhile(n)
	case *ast.BreakStmt:
		return fc.lowerBreak()
	case *ast.ContinueStmt:
		return fc.lowerContinue()
	default:
		return cerrors.Bug("irgen: unhandled statement type %T", s)
	}
}

func (fc *funcCtx) lowerAssign(n *ast.AssignStmt) error {
	val, err := fc.lowerExpr(n.Value)
	if err != nil {
		return err
	}
	addr, err := fc.lowerLValAssignTarget(n.Target)
	if err != nil {
		return err
	}
	fc.emitf("store %s, %s", val.Operand(), addr)
	return nil
}

func (fc *funcCtx) lowerReturn(n *ast.ReturnStmt) error {
	if n.Value == nil {
		fc.emitTerm("ret")
		return nil
	}
	v, err := fc.lowerExpr(n.Value)
	if err != nil {
		return err
	}
	fc.emitTerm("ret %s", v.Operand())
	return nil
}

func (fc *funcCtx) lowerIf(n *ast.IfStmt) error {
	cond, err := fc.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	k := fc.g.newIfID()
	thenLabel := fmt.Sprintf("%%then_%d", k)
	endLabel := fmt.Sprintf("%%end_%d", k)

	if n.Else == nil {
		fc.emitTerm("br %s, %s, %s", cond.Operand(), thenLabel, endLabel)
		fc.emitLabel(thenLabel)
		if err := fc.lowerStmt(n.Then); err != nil {
			return err
		}
		if !fc.terminated {
			fc.emitTerm("jump %s", endLabel)
		}
		fc.emitLabel(endLabel)
		return nil
	}

	elseLabel := fmt.Sprintf("%%else_%d", k)
	fc.emitTerm("br %s, %s, %s", cond.Operand(), thenLabel, elseLabel)

	fc.emitLabel(thenLabel)
	if err := fc.lowerStmt(n.Then); err != nil {
		return err
	}
	thenFellThrough := !fc.terminated
	if thenFellThrough {
		fc.emitTerm("jump %s", endLabel)
	}

	fc.emitLabel(elseLabel)
	if err := fc.lowerStmt(n.Else); err != nil {
		return err
	}
	elseFellThrough := !fc.terminated
	if elseFellThrough {
		fc.emitTerm("jump %s", endLabel)
	}

	if thenFellThrough || elseFellThrough {
		fc.emitLabel(endLabel)
	}
	return nil
}

func (fc *funcCtx) lowerWhile(n *ast.WhileStmt) error {
	k := fc.g.newWhileID()
	entryLabel := fmt.Sprintf("%%while_entry_%d", k)
	bodyLabel := fmt.Sprintf("%%while_body_%d", k)
	endLabel := fmt.Sprintf("%%while_end_%d", k)

	fc.emitTerm("jump %s", entryLabel)
	fc.emitLabel(entryLabel)
	cond, err := fc.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	fc.emitTerm("br %s, %s, %s", cond.Operand(), bodyLabel, endLabel)

	fc.emitLabel(bodyLabel)
	fc.g.pushWhile(k)
	err = fc.lowerStmt(n.Body)
	fc.g.popWhile()
	if err != nil {
		return err
	}
	if !fc.terminated {
		fc.emitTerm("jump %s", entryLabel)
	}

	fc.emitLabel(endLabel)
	return nil
}

func (fc *funcCtx) lowerBreak() error {
	k, ok := fc.g.currentWhile()
	if !ok {
		return cerrors.Bug("irgen: break outside any loop")
	}
	fc.emitTerm("jump %%while_end_%d", k)
	return nil
}

func (fc *funcCtx) lowerContinue() error {
	k, ok := fc.g.currentWhile()
	if !ok {
		return cerrors.Bug("irgen: continue outside any loop")
	}
	fc.emitTerm("jump %%while_entry_%d", k)
	return nil
}
