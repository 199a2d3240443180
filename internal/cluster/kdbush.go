package cluster

import "math"

// kdbush — плоский статический KD-индекс по точкам одного уровня зума.
// Построение сортирует пары координат на месте; поиск обходит дерево
// итеративно через явный стек.
type kdbush struct {
	nodeSize int
	ids      []int
	coords   []float64
}

func newKDBush(items []treeItem, nodeSize int) *kdbush {
	n := len(items)
	b := &kdbush{
		nodeSize: nodeSize,
		ids:      make([]int, n),
		coords:   make([]float64, 2*n),
	}
	for i := range items {
		b.ids[i] = i
		b.coords[2*i] = items[i].x
		b.coords[2*i+1] = items[i].y
	}
	if n > 0 {
		sortKD(b.ids, b.coords, nodeSize, 0, n-1, 0)
	}
	return b
}

// Range возвращает индексы элементов внутри прямоугольника
func (b *kdbush) Range(minX, minY, maxX, maxY float64) []int {
	if len(b.ids) == 0 {
		return nil
	}

	var result []int
	stack := []int{0, len(b.ids) - 1, 0}

	for len(stack) > 0 {
		axis := stack[len(stack)-1]
		right := stack[len(stack)-2]
		left := stack[len(stack)-3]
		stack = stack[:len(stack)-3]

		if right-left <= b.nodeSize {
			for i := left; i <= right; i++ {
				x, y := b.coords[2*i], b.coords[2*i+1]
				if x >= minX && x <= maxX && y >= minY && y <= maxY {
					result = append(result, b.ids[i])
				}
			}
			continue
		}

		m := (left + right) >> 1
		x, y := b.coords[2*m], b.coords[2*m+1]
		if x >= minX && x <= maxX && y >= minY && y <= maxY {
			result = append(result, b.ids[m])
		}

		if (axis == 0 && minX <= x) || (axis == 1 && minY <= y) {
			stack = append(stack, left, m-1, 1-axis)
		}
		if (axis == 0 && maxX >= x) || (axis == 1 && maxY >= y) {
			stack = append(stack, m+1, right, 1-axis)
		}
	}
	return result
}

// Within возвращает индексы элементов внутри круга радиуса r
func (b *kdbush) Within(qx, qy, r float64) []int {
	if len(b.ids) == 0 {
		return nil
	}

	var result []int
	r2 := r * r
	stack := []int{0, len(b.ids) - 1, 0}

	for len(stack) > 0 {
		axis := stack[len(stack)-1]
		right := stack[len(stack)-2]
		left := stack[len(stack)-3]
		stack = stack[:len(stack)-3]

		if right-left <= b.nodeSize {
			for i := left; i <= right; i++ {
				if sqDist(b.coords[2*i], b.coords[2*i+1], qx, qy) <= r2 {
					result = append(result, b.ids[i])
				}
			}
			continue
		}

		m := (left + right) >> 1
		x, y := b.coords[2*m], b.coords[2*m+1]
		if sqDist(x, y, qx, qy) <= r2 {
			result = append(result, b.ids[m])
		}

		if (axis == 0 && qx-r <= x) || (axis == 1 && qy-r <= y) {
			stack = append(stack, left, m-1, 1-axis)
		}
		if (axis == 0 && qx+r >= x) || (axis == 1 && qy+r >= y) {
			stack = append(stack, m+1, right, 1-axis)
		}
	}
	return result
}

func sortKD(ids []int, coords []float64, nodeSize, left, right, axis int) {
	if right-left <= nodeSize {
		return
	}
	m := (left + right) >> 1
	selectKD(ids, coords, m, left, right, axis)
	sortKD(ids, coords, nodeSize, left, m-1, 1-axis)
	sortKD(ids, coords, nodeSize, m+1, right, 1-axis)
}

// selectKD переставляет элементы так, что k-й занимает позицию как при
// полной сортировке по оси (выбор Флойда-Ривеста)
func selectKD(ids []int, coords []float64, k, left, right, axis int) {
	for right > left {
		if right-left > 600 {
			n := float64(right - left + 1)
			m := float64(k - left + 1)
			z := math.Log(n)
			s := 0.5 * math.Exp(2*z/3)
			sd := 0.5 * math.Sqrt(z*s*(n-s)/n)
			if m-n/2 < 0 {
				sd = -sd
			}
			newLeft := maxInt(left, int(float64(k)-m*s/n+sd))
			newRight := minInt(right, int(float64(k)+(n-m)*s/n+sd))
			selectKD(ids, coords, k, newLeft, newRight, axis)
		}

		t := coords[2*k+axis]
		i := left
		j := right

		swapItem(ids, coords, left, k)
		if coords[2*right+axis] > t {
			swapItem(ids, coords, left, right)
		}

		for i < j {
			swapItem(ids, coords, i, j)
			i++
			j--
			for coords[2*i+axis] < t {
				i++
			}
			for coords[2*j+axis] > t {
				j--
			}
		}

		if coords[2*left+axis] == t {
			swapItem(ids, coords, left, j)
		} else {
			j++
			swapItem(ids, coords, j, right)
		}

		if j <= k {
			left = j + 1
		}
		if k <= j {
			right = j - 1
		}
	}
}

func swapItem(ids []int, coords []float64, i, j int) {
	ids[i], ids[j] = ids[j], ids[i]
	coords[2*i], coords[2*j] = coords[2*j], coords[2*i]
	coords[2*i+1], coords[2*j+1] = coords[2*j+1], coords[2*i+1]
}

func sqDist(ax, ay, bx, by float64) float64 {
	dx := ax - bx
	dy := ay - by
	return dx*dx + dy*dy
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
